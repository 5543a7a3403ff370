package export

// Row is one timetable line as it appears in an export.
type Row struct {
	Day        string `csv:"day"`
	StartTime  string `csv:"start_time"`
	EndTime    string `csv:"end_time"`
	Class      string `csv:"class"`
	CourseCode string `csv:"course_code"`
	CourseName string `csv:"course_name"`
	CourseType string `csv:"course_type"`
	Faculty    string `csv:"faculty"`
	Room       string `csv:"room"`
}

// Dataset defines tabular export content.
type Dataset struct {
	Title string
	Rows  []Row
}

var columns = []string{"Day", "Start", "End", "Class", "Course", "Name", "Type", "Faculty", "Room"}

// widths are in mm and sum to the printable width of a landscape A4 page.
var widths = []float64{24, 16, 16, 26, 24, 70, 18, 57, 26}

func (r Row) cells() []string {
	return []string{r.Day, r.StartTime, r.EndTime, r.Class, r.CourseCode, r.CourseName, r.CourseType, r.Faculty, r.Room}
}
