package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall-clock time so anomaly windows and session-age checks
// are testable without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewSystem returns the real clock.
func NewSystem() Clock { return systemClock{} }

var Module = fx.Module("clock",
	fx.Provide(NewSystem),
)
