// Package snowflake provides time-ordered unique IDs for database rows.
package snowflake

import (
	"math/rand"
	"time"
)

// ID is a 64 bit identifier that sorts by creation time.
type ID uint64

// Now returns an ID for the current time.
func Now() ID {
	return TimeToID(time.Now())
}

// TimeToID converts a time.Time to an ID.
func TimeToID(ts time.Time) ID {
	// 48 bits for time in milliseconds.
	// 16 bits for random.
	return ID(ts.UnixNano()/int64(time.Millisecond))<<16 | ID(rand.Intn(1<<16))
}

// ToTime returns the time at which the ID was created.
func (id ID) ToTime() time.Time {
	return time.Unix(0, int64(id>>16)*1e6)
}
