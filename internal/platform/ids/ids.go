package ids

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGen hands out public references (payment refs, claim numbers, ...).
type IDGen interface {
	New() string
}

type ULIDGen struct{}

// New uses ulid.Make, which is safe for concurrent use and monotonic
// within the same millisecond.
func (ULIDGen) New() string {
	return ulid.Make().String()
}

// ULIDAt returns a ULID with the timestamp of t. Import batches use it so
// the batch id sorts by import time.
func ULIDAt(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}
