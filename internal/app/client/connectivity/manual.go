package connectivity

import (
	"golang.org/x/exp/slog"
)

// Manual is a Sensor whose state is set by the caller.
type Manual struct {
	*state
}

func NewManual(online bool, log *slog.Logger) *Manual {
	return &Manual{state: newState(online, log.With("component", "connectivity"))}
}

func (m *Manual) SetOnline(online bool) {
	m.set(online)
}
