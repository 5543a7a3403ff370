package scheduler

import "github.com/noah-isme/timetable-api/internal/models"

// slotHours is the length of one slot in hours.
const slotHours = 1

// requiredSlots converts a weekly hours requirement into a slot count.
func requiredSlots(hoursPerWeek int) int {
	return (hoursPerWeek + slotHours - 1) / slotHours
}

type slotRequest struct {
	class     models.Class
	course    models.Course
	facultyID int64
	rooms     []models.Classroom
	needed    int
}

// slotStrategy books slots for one course. It returns the entries it placed,
// which may be fewer than needed. Errors are consistency failures.
type slotStrategy interface {
	allocate(req slotRequest) ([]models.TimetableEntry, error)
}

// labStrategy books one contiguous block of slots on a single day.
type labStrategy struct {
	cat   *catalog
	index *AvailabilityIndex
}

func (s *labStrategy) allocate(req slotRequest) ([]models.TimetableEntry, error) {
	if req.needed <= 0 {
		return nil, nil
	}
	for _, day := range s.cat.days {
		for i := 0; i+req.needed <= len(day); i++ {
			window := day[i : i+req.needed]
			if !contiguous(window) {
				continue
			}
			for _, room := range req.rooms {
				if !s.windowFree(req, room.RoomNo, window) {
					continue
				}
				entries := make([]models.TimetableEntry, 0, len(window))
				for _, info := range window {
					if err := s.index.Occupy(req.class.ID, req.facultyID, room.RoomNo, info.slot.ID); err != nil {
						return nil, err
					}
					entries = append(entries, newEntry(req, room.RoomNo, info.slot.ID))
				}
				return entries, nil
			}
		}
	}
	return nil, nil
}

func (s *labStrategy) windowFree(req slotRequest, roomNo string, window []slotInfo) bool {
	for _, info := range window {
		if !s.index.IsFree(req.class.ID, req.facultyID, roomNo, info.slot.ID) {
			return false
		}
	}
	return true
}

// contiguous reports whether each slot ends exactly when the next one starts.
func contiguous(window []slotInfo) bool {
	for i := 1; i < len(window); i++ {
		if window[i-1].day != window[i].day || window[i-1].end != window[i].start {
			return false
		}
	}
	return true
}

// theoryStrategy books independent slots, skipping break and lab slots.
type theoryStrategy struct {
	cat   *catalog
	index *AvailabilityIndex
}

func (s *theoryStrategy) allocate(req slotRequest) ([]models.TimetableEntry, error) {
	var entries []models.TimetableEntry
	for _, info := range s.cat.slots {
		if len(entries) >= req.needed {
			break
		}
		if info.slot.IsBreak || info.slot.IsLab {
			continue
		}
		for _, room := range req.rooms {
			if !s.index.IsFree(req.class.ID, req.facultyID, room.RoomNo, info.slot.ID) {
				continue
			}
			if err := s.index.Occupy(req.class.ID, req.facultyID, room.RoomNo, info.slot.ID); err != nil {
				return nil, err
			}
			entries = append(entries, newEntry(req, room.RoomNo, info.slot.ID))
			break
		}
	}
	return entries, nil
}

func newEntry(req slotRequest, roomNo string, slotID int64) models.TimetableEntry {
	return models.TimetableEntry{
		ClassID:    req.class.ID,
		CourseCode: req.course.Code,
		FacultyID:  req.facultyID,
		RoomNo:     roomNo,
		SlotID:     slotID,
	}
}
