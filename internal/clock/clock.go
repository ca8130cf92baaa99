package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time.Now so billing and reminder logic can be tested
// against a fixed calendar.
type Clock interface {
	Now() time.Time
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)

type systemClock struct{}

func NewSystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }
