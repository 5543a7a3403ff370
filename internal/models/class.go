package models

// Class represents a student section enrolled in a given year and semester.
type Class struct {
	ID           int64  `db:"class_id" json:"classId"`
	Section      string `db:"sec" json:"section"`
	Year         int    `db:"year" json:"year"`
	Semester     int    `db:"sem" json:"semester"`
	StudentCount int    `db:"nos" json:"nos"`
	AdvisorID    *int64 `db:"fac_id" json:"advisorId,omitempty"`
}

// ClassCourse maps a class to a course it must take.
type ClassCourse struct {
	ClassID    int64  `db:"class_id" json:"classId"`
	CourseCode string `db:"course_code" json:"courseCode"`
}

// ClassFilter selects the classes taking part in a generation run.
type ClassFilter struct {
	Semester int
	Year     *int
}
