package scheduler

// WarningKind classifies a per-course allocation problem.
type WarningKind string

const (
	WarningNoEligibleFaculty WarningKind = "NO_ELIGIBLE_FACULTY"
	WarningNoSuitableRoom    WarningKind = "NO_SUITABLE_ROOM"
	WarningNoAvailableSlot   WarningKind = "NO_AVAILABLE_SLOT"
	WarningPartialAllocation WarningKind = "PARTIAL_ALLOCATION"
)

// Warning is a non-fatal allocation outcome for one (class, course) pair.
type Warning struct {
	Kind       WarningKind `json:"kind"`
	ClassID    int64       `json:"classId"`
	CourseCode string      `json:"courseCode"`
	Message    string      `json:"message"`
}
