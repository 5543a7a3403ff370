package models

// CourseType distinguishes lecture courses from lab courses.
type CourseType string

const (
	CourseTypeTheory CourseType = "THEORY"
	CourseTypeLab    CourseType = "LAB"
)

// Valid reports whether the type is one of the known course types.
func (t CourseType) Valid() bool {
	return t == CourseTypeTheory || t == CourseTypeLab
}

// Course is a unit of teaching with a weekly hours requirement.
type Course struct {
	Code         string     `db:"course_code" json:"courseCode"`
	Name         string     `db:"course_name" json:"courseName"`
	Credits      int        `db:"credits" json:"credits"`
	Type         CourseType `db:"course_type" json:"courseType"`
	HoursPerWeek int        `db:"hours_week" json:"hoursWeek"`
	DepartmentID *int64     `db:"dept_id" json:"deptId,omitempty"`
}

// RoomType returns the classroom type a course must be held in.
func (c Course) RoomType() RoomType {
	if c.Type == CourseTypeLab {
		return RoomTypeLab
	}
	return RoomTypeLecture
}

// CourseFaculty marks a faculty member as eligible to teach a course.
type CourseFaculty struct {
	CourseCode string `db:"course_code" json:"courseCode"`
	FacultyID  int64  `db:"fac_id" json:"facultyId"`
}
