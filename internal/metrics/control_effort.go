package metrics

import (
	"math"

	"github.com/san-kum/pathtrack/internal/sim"
)

// ControlEffort is the mean of v² + ω² over the applied commands.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(x sim.State, u sim.Control, t float64) {
	for _, val := range u {
		c.sum += val * val
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Smoothness is the mean absolute change in turn rate between steps.
type Smoothness struct {
	prev    float64
	started bool
	sum     float64
	samples int
}

func NewSmoothness() *Smoothness {
	return &Smoothness{}
}

func (s *Smoothness) Name() string { return "smoothness" }

func (s *Smoothness) Observe(x sim.State, u sim.Control, t float64) {
	if len(u) < 2 {
		return
	}
	if s.started {
		s.sum += math.Abs(u[1] - s.prev)
		s.samples++
	}
	s.prev = u[1]
	s.started = true
}

func (s *Smoothness) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.sum / float64(s.samples)
}

func (s *Smoothness) Reset() {
	*s = Smoothness{}
}
