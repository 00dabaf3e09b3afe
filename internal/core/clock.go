package core

import "time"

// TimeProvider supplies the current time so services can be tested with a fixed clock.
type TimeProvider interface {
	Now() time.Time
}
