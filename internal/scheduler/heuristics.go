package scheduler

import (
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

// FacultyOrder decides which eligible faculty member is tried first.
type FacultyOrder string

// RoomOrder decides which suitable room is tried first.
type RoomOrder string

const (
	// FacultyLeastLoaded tries the lowest current load first.
	FacultyLeastLoaded FacultyOrder = "least_loaded"
	// FacultyMostCapacity tries the largest remaining capacity first.
	FacultyMostCapacity FacultyOrder = "most_capacity"

	// RoomSmallestFirst keeps large rooms free for large classes.
	RoomSmallestFirst RoomOrder = "smallest_first"
	// RoomLargestFirst tries the largest sufficient room first.
	RoomLargestFirst RoomOrder = "largest_first"
)

// Heuristics are the greedy tie-break rules of a run. Ties always fall back
// to identity so output stays deterministic.
type Heuristics struct {
	FacultyOrder FacultyOrder
	RoomOrder    RoomOrder
}

// DefaultHeuristics returns least-loaded faculty and smallest sufficient room.
func DefaultHeuristics() Heuristics {
	return Heuristics{FacultyOrder: FacultyLeastLoaded, RoomOrder: RoomSmallestFirst}
}

func (h Heuristics) normalize() Heuristics {
	switch h.FacultyOrder {
	case FacultyLeastLoaded, FacultyMostCapacity:
	default:
		h.FacultyOrder = FacultyLeastLoaded
	}
	switch h.RoomOrder {
	case RoomSmallestFirst, RoomLargestFirst:
	default:
		h.RoomOrder = RoomSmallestFirst
	}
	return h
}

func (h Heuristics) sortFaculty(ids []int64, loads *LoadTracker) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		var ka, kb int
		if h.FacultyOrder == FacultyMostCapacity {
			ka, kb = -loads.RemainingCapacity(a), -loads.RemainingCapacity(b)
		} else {
			ka, kb = loads.CurrentHours(a), loads.CurrentHours(b)
		}
		if ka != kb {
			return ka < kb
		}
		return a < b
	})
}

func (h Heuristics) sortRooms(rooms []models.Classroom) {
	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		if a.Capacity != b.Capacity {
			if h.RoomOrder == RoomLargestFirst {
				return a.Capacity > b.Capacity
			}
			return a.Capacity < b.Capacity
		}
		return a.RoomNo < b.RoomNo
	})
}
