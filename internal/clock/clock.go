// Package clock abstracts time for components with expiry semantics.
package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current time. Services take it by injection so expiry
// boundaries can be pinned in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// NewSystem returns the wall clock, in UTC.
func NewSystem() Clock {
	return systemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(NewSystem),
)
