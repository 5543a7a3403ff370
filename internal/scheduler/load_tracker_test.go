package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestLoadTrackerAddHours(t *testing.T) {
	loads := NewLoadTracker([]models.Faculty{faculty(1, 6)})
	assert.Equal(t, 0, loads.CurrentHours(1))
	assert.Equal(t, 6, loads.RemainingCapacity(1))

	require.NoError(t, loads.AddHours(1, 4))
	require.NoError(t, loads.AddHours(1, 2))
	assert.Equal(t, 6, loads.CurrentHours(1))
	assert.Equal(t, 0, loads.RemainingCapacity(1))

	err := loads.AddHours(1, 1)
	var overload *OverloadError
	require.True(t, errors.As(err, &overload))
	assert.Equal(t, OverloadError{FacultyID: 1, Current: 6, Adding: 1, Max: 6}, *overload)
	assert.Equal(t, 6, loads.CurrentHours(1), "rejected hours are not recorded")
}

func TestLoadTrackerSeed(t *testing.T) {
	loads := NewLoadTracker([]models.Faculty{faculty(1, 6)})
	loads.Seed(1, 4)
	assert.Equal(t, 4, loads.CurrentHours(1))
	assert.Equal(t, 2, loads.RemainingCapacity(1))
	assert.Error(t, loads.AddHours(1, 3))

	loads.Seed(1, 5)
	assert.Equal(t, -3, loads.RemainingCapacity(1))
}

func TestLoadTrackerUnknownFaculty(t *testing.T) {
	loads := NewLoadTracker(nil)
	assert.Equal(t, 0, loads.RemainingCapacity(9))
	assert.Error(t, loads.AddHours(9, 1))
}
