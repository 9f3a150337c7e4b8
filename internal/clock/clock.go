package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current instant. Rule evaluation never reads the system
// clock directly; services take the instant from here so tests can pin it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func NewSystemClock() Clock {
	return systemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
