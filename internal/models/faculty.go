package models

// Faculty is a teaching staff member with a weekly workload ceiling.
type Faculty struct {
	ID           int64  `db:"fac_id" json:"facultyId"`
	Name         string `db:"fac_name" json:"facultyName"`
	DepartmentID *int64 `db:"dept_id" json:"deptId,omitempty"`
	Designation  string `db:"design" json:"designation"`
	MaxHoursWeek int    `db:"max_hours_week" json:"maxHoursWeek"`
}
