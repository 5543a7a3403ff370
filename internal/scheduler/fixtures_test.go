package scheduler

import "github.com/noah-isme/timetable-api/internal/models"

func slot(id int64, day, start, end string, lab, brk bool) models.TimeSlot {
	return models.TimeSlot{ID: id, DayOfWeek: day, StartTime: models.Clock(start), EndTime: models.Clock(end), IsLab: lab, IsBreak: brk}
}

func theory(code string, hours int) models.Course {
	return models.Course{Code: code, Name: code, Type: models.CourseTypeTheory, HoursPerWeek: hours, Credits: hours}
}

func lab(code string, hours int) models.Course {
	return models.Course{Code: code, Name: code, Type: models.CourseTypeLab, HoursPerWeek: hours, Credits: 1}
}

func faculty(id int64, maxHours int) models.Faculty {
	return models.Faculty{ID: id, Name: "faculty", MaxHoursWeek: maxHours}
}

func lectureRoom(no string, capacity int) models.Classroom {
	return models.Classroom{RoomNo: no, Type: models.RoomTypeLecture, Capacity: capacity}
}

func labRoom(no string, capacity int) models.Classroom {
	return models.Classroom{RoomNo: no, Type: models.RoomTypeLab, Capacity: capacity}
}

func entry(classID int64, course string, facultyID int64, room string, slotID int64) models.TimetableEntry {
	return models.TimetableEntry{ClassID: classID, CourseCode: course, FacultyID: facultyID, RoomNo: room, SlotID: slotID}
}

// scenarioSnapshot is one class of 30 students taking a 3h theory course and
// a 2h lab, two equally free faculty, one lecture room and one lab room, and
// five teaching slots over two days with the first two Monday slots lab-flagged.
func scenarioSnapshot() Snapshot {
	return Snapshot{
		Classes: []models.Class{{ID: 1, Section: "A", Year: 3, Semester: 5, StudentCount: 30}},
		Courses: []models.Course{theory("CS301", 3), lab("CS391", 2)},
		ClassCourses: []models.ClassCourse{
			{ClassID: 1, CourseCode: "CS301"},
			{ClassID: 1, CourseCode: "CS391"},
		},
		CourseFaculty: []models.CourseFaculty{
			{CourseCode: "CS301", FacultyID: 1},
			{CourseCode: "CS301", FacultyID: 2},
			{CourseCode: "CS391", FacultyID: 1},
			{CourseCode: "CS391", FacultyID: 2},
		},
		Faculty: []models.Faculty{faculty(1, 6), faculty(2, 6)},
		Rooms:   []models.Classroom{lectureRoom("L101", 40), labRoom("LAB1", 35)},
		Slots: []models.TimeSlot{
			slot(1, "Monday", "09:00", "10:00", true, false),
			slot(2, "Monday", "10:00", "11:00", true, false),
			slot(3, "Monday", "11:00", "12:00", false, false),
			slot(4, "Tuesday", "09:00", "10:00", false, false),
			slot(5, "Tuesday", "10:00", "11:00", false, false),
		},
	}
}

// campusSnapshot is a larger data set shared by the property tests.
func campusSnapshot() Snapshot {
	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	hours := []struct {
		start, end string
		lab, brk   bool
	}{
		{"08:00", "09:00", false, false},
		{"09:00", "10:00", false, false},
		{"10:00", "10:30", false, true},
		{"10:30", "11:30", false, false},
		{"11:30", "12:30", false, false},
		{"13:30", "14:30", true, false},
		{"14:30", "15:30", true, false},
		{"15:30", "16:30", true, false},
	}
	var slots []models.TimeSlot
	id := int64(100)
	// Listed backwards so ordering cannot come from input order.
	for d := len(days) - 1; d >= 0; d-- {
		for h := len(hours) - 1; h >= 0; h-- {
			slots = append(slots, slot(id, days[d], hours[h].start, hours[h].end, hours[h].lab, hours[h].brk))
			id++
		}
	}

	classes := []models.Class{
		{ID: 12, Section: "B", Year: 2, Semester: 3, StudentCount: 55},
		{ID: 10, Section: "A", Year: 2, Semester: 3, StudentCount: 30},
		{ID: 11, Section: "C", Year: 2, Semester: 3, StudentCount: 42},
	}
	courses := []models.Course{
		theory("MA201", 4), theory("CS201", 3), theory("CS202", 3), theory("HS201", 2),
		lab("CS281", 3), lab("CS282", 2),
	}
	var classCourses []models.ClassCourse
	for _, class := range classes {
		for _, course := range courses {
			classCourses = append(classCourses, models.ClassCourse{ClassID: class.ID, CourseCode: course.Code})
		}
	}
	courseFaculty := []models.CourseFaculty{
		{CourseCode: "MA201", FacultyID: 1}, {CourseCode: "MA201", FacultyID: 2},
		{CourseCode: "CS201", FacultyID: 3}, {CourseCode: "CS201", FacultyID: 4},
		{CourseCode: "CS202", FacultyID: 4}, {CourseCode: "CS202", FacultyID: 3},
		{CourseCode: "HS201", FacultyID: 5},
		{CourseCode: "CS281", FacultyID: 3}, {CourseCode: "CS281", FacultyID: 6},
		{CourseCode: "CS282", FacultyID: 6}, {CourseCode: "CS282", FacultyID: 4},
	}
	return Snapshot{
		Classes:       classes,
		Courses:       courses,
		ClassCourses:  classCourses,
		CourseFaculty: courseFaculty,
		Faculty: []models.Faculty{
			faculty(1, 8), faculty(2, 8), faculty(3, 10), faculty(4, 10), faculty(5, 4), faculty(6, 9),
		},
		Rooms: []models.Classroom{
			lectureRoom("L-60", 60), lectureRoom("L-45", 45), lectureRoom("L-35", 35),
			labRoom("LAB-60", 60), labRoom("LAB-40", 40),
		},
		Slots: slots,
	}
}
