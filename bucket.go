package delays

import (
	"fmt"
	"strings"
	"time"

	"sbahn.dev/delays/model"
)

// Width of a time bucket. Scheduled times are rounded to the nearest
// multiple of this.
const BucketWidth = 5 * time.Minute

const bucketMinutes = int(BucketWidth / time.Minute)

// Number of distinct slots in a day.
const SlotsPerDay = model.MinutesPerDay / bucketMinutes

// Grouping key for aggregation. Training and prediction must derive
// it the same way, hence the single constructor.
type Bucket struct {
	Line      string
	Slot      int
	Direction model.Direction
}

func NewBucket(line string, t model.TimeOfDay, direction model.Direction) Bucket {
	return Bucket{
		Line:      strings.ToUpper(line),
		Slot:      SlotOf(t),
		Direction: direction,
	}
}

// Slot of t, rounding half up. 23:58 wraps to slot 0.
func SlotOf(t model.TimeOfDay) int {
	return ((int(t) + bucketMinutes/2) / bucketMinutes) % SlotsPerDay
}

// Distance in slots, wrapping around midnight.
func SlotDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > SlotsPerDay/2 {
		d = SlotsPerDay - d
	}
	return d
}

// The time of day the slot is centered on.
func (b Bucket) Time() model.TimeOfDay {
	return model.TimeOfDay(b.Slot * bucketMinutes)
}

func (b Bucket) String() string {
	return fmt.Sprintf("%s@%s/%s", b.Line, b.Time(), b.Direction)
}
