package scheduler

import "fmt"

// Conflict dimensions reported by ConflictError.
const (
	DimensionClass   = "CLASS"
	DimensionFaculty = "FACULTY"
	DimensionRoom    = "ROOM"
)

// ConflictError reports an attempt to occupy an already occupied
// (class | faculty | room, slot) pair. It signals an allocation bug, not bad input.
type ConflictError struct {
	Dimension string
	ClassID   int64
	FacultyID int64
	RoomNo    string
	SlotID    int64
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Dimension {
	case DimensionClass:
		return fmt.Sprintf("class %d already booked in slot %d", e.ClassID, e.SlotID)
	case DimensionFaculty:
		return fmt.Sprintf("faculty %d already booked in slot %d", e.FacultyID, e.SlotID)
	default:
		return fmt.Sprintf("room %s already booked in slot %d", e.RoomNo, e.SlotID)
	}
}

type classSlot struct {
	classID int64
	slotID  int64
}

type facultySlot struct {
	facultyID int64
	slotID    int64
}

type roomSlot struct {
	roomNo string
	slotID int64
}

// AvailabilityIndex tracks which classes, faculty and rooms are booked per slot.
// It lives for one run and never touches storage.
type AvailabilityIndex struct {
	classes map[classSlot]struct{}
	faculty map[facultySlot]struct{}
	rooms   map[roomSlot]struct{}
}

// NewAvailabilityIndex returns an empty index.
func NewAvailabilityIndex() *AvailabilityIndex {
	return &AvailabilityIndex{
		classes: make(map[classSlot]struct{}),
		faculty: make(map[facultySlot]struct{}),
		rooms:   make(map[roomSlot]struct{}),
	}
}

// IsClassFree reports whether the class has nothing booked in the slot.
func (a *AvailabilityIndex) IsClassFree(classID, slotID int64) bool {
	_, taken := a.classes[classSlot{classID, slotID}]
	return !taken
}

// IsFacultyFree reports whether the faculty member has nothing booked in the slot.
func (a *AvailabilityIndex) IsFacultyFree(facultyID, slotID int64) bool {
	_, taken := a.faculty[facultySlot{facultyID, slotID}]
	return !taken
}

// IsRoomFree reports whether the room has nothing booked in the slot.
func (a *AvailabilityIndex) IsRoomFree(roomNo string, slotID int64) bool {
	_, taken := a.rooms[roomSlot{roomNo, slotID}]
	return !taken
}

// IsFree reports whether class, faculty and room are all free in the slot.
func (a *AvailabilityIndex) IsFree(classID, facultyID int64, roomNo string, slotID int64) bool {
	return a.IsClassFree(classID, slotID) && a.IsFacultyFree(facultyID, slotID) && a.IsRoomFree(roomNo, slotID)
}

// Occupy books all three resources in the slot, or none of them.
func (a *AvailabilityIndex) Occupy(classID, facultyID int64, roomNo string, slotID int64) error {
	conflict := &ConflictError{ClassID: classID, FacultyID: facultyID, RoomNo: roomNo, SlotID: slotID}
	switch {
	case !a.IsClassFree(classID, slotID):
		conflict.Dimension = DimensionClass
		return conflict
	case !a.IsFacultyFree(facultyID, slotID):
		conflict.Dimension = DimensionFaculty
		return conflict
	case !a.IsRoomFree(roomNo, slotID):
		conflict.Dimension = DimensionRoom
		return conflict
	}
	a.classes[classSlot{classID, slotID}] = struct{}{}
	a.faculty[facultySlot{facultyID, slotID}] = struct{}{}
	a.rooms[roomSlot{roomNo, slotID}] = struct{}{}
	return nil
}
