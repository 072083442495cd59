package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(day int) time.Time {
	return time.Date(2025, time.January, day, 0, 0, 0, 0, time.UTC)
}

func TestTimeRange_Valid(t *testing.T) {
	assert.True(t, TimeRange{Start: date(1), End: date(5)}.Valid())
	assert.False(t, TimeRange{Start: date(5), End: date(1)}.Valid())
	assert.False(t, TimeRange{Start: date(3), End: date(3)}.Valid())
	assert.False(t, TimeRange{}.Valid())
}

func TestTimeRange_Overlaps(t *testing.T) {
	base := TimeRange{Start: date(5), End: date(10)}

	tests := []struct {
		name    string
		other   TimeRange
		overlap bool
	}{
		{"identical", TimeRange{Start: date(5), End: date(10)}, true},
		{"contained", TimeRange{Start: date(6), End: date(8)}, true},
		{"overlaps start", TimeRange{Start: date(3), End: date(7)}, true},
		{"overlaps end", TimeRange{Start: date(8), End: date(12)}, true},
		{"covers", TimeRange{Start: date(1), End: date(20)}, true},
		{"before", TimeRange{Start: date(1), End: date(3)}, false},
		{"after", TimeRange{Start: date(12), End: date(15)}, false},
		{"adjacent before", TimeRange{Start: date(1), End: date(5)}, false},
		{"adjacent after", TimeRange{Start: date(10), End: date(15)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlap, base.Overlaps(tt.other))
			// Overlap is symmetric.
			assert.Equal(t, tt.overlap, tt.other.Overlaps(base))
		})
	}
}
