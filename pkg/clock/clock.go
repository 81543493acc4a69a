package clock

import (
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(NewReal),
)

// Clock abstracts wall-clock access so expiration logic stays deterministic
// under test. All time-based predicates in the engine go through it.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func NewReal() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

// Fixed is a Clock frozen at a given instant.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}
