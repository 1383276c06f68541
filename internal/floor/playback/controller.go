package playback

import (
	"math"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/displacement"
)

const (
	MinScale     = 0.5
	MaxScale     = 3.0
	MinSpeed     = 0.2
	MaxSpeed     = 2.0
	DefaultScale = 1.0
	DefaultSpeed = 1.0
)

// State is a snapshot of the transport. CurrentMode is nil when the
// dataset has no modes.
type State struct {
	CurrentMode *int    `json:"currentMode"`
	Scale       float64 `json:"scale"`
	Speed       float64 `json:"speed"`
	Time        float64 `json:"time"`
	Playing     bool    `json:"playing"`
}

// Controller owns the playback state for one engine. It is not safe for
// concurrent use; hosts serialise access per instance.
type Controller struct {
	engine  *displacement.Engine
	mode    int
	hasMode bool
	scale   float64
	speed   float64
	time    float64
	playing bool
}

// New attaches a fresh controller to e with the lowest mode selected,
// time 0, stopped, scale 1 and speed 1.
func New(e *displacement.Engine) *Controller {
	c := &Controller{
		engine: e,
		scale:  DefaultScale,
		speed:  DefaultSpeed,
	}
	if modes := e.Modes(); len(modes) > 0 {
		c.mode, c.hasMode = modes[0], true
	}
	return c
}

func (c *Controller) Engine() *displacement.Engine { return c.engine }

// SetMode selects m, rewinds to time 0 and stops. Callers pass only listed modes.
func (c *Controller) SetMode(m int) {
	c.mode, c.hasMode = m, true
	c.time = 0
	c.playing = false
}

// Play starts the clock; without a selected mode there is nothing to animate.
func (c *Controller) Play() {
	if c.hasMode {
		c.playing = true
	}
}

// Stop holds the current frame; time is kept.
func (c *Controller) Stop() {
	c.playing = false
}

func (c *Controller) SetScale(s float64) {
	c.scale = clamp(s, MinScale, MaxScale)
}

func (c *Controller) SetSpeed(v float64) {
	c.speed = clamp(v, MinSpeed, MaxSpeed)
}

// Update advances time by dt*speed while playing. Negative or non-finite
// deltas are ignored.
func (c *Controller) Update(dt float64) {
	if !c.playing || dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return
	}
	c.time += dt * c.speed
}

// DisplacedZ is node id's elevation for the current mode, time and scale.
func (c *Controller) DisplacedZ(id int) float64 {
	if !c.hasMode {
		return c.engine.Elevation(id)
	}
	return c.engine.DisplacedElevation(id, c.mode, c.time, c.scale)
}

// FreqHz returns the frequency of mode m.
func (c *Controller) FreqHz(m int) float64 {
	return c.engine.Frequency(m)
}

// CurrentFreqHz returns the selected mode's frequency, 0 when none is selected.
func (c *Controller) CurrentFreqHz() float64 {
	if !c.hasMode {
		return 0
	}
	return c.engine.Frequency(c.mode)
}

// Frame returns every node's position for the current state.
func (c *Controller) Frame() []displacement.NodePosition {
	if !c.hasMode {
		return c.engine.Rest()
	}
	return c.engine.Frame(c.mode, c.time, c.scale)
}

func (c *Controller) CurrentMode() (int, bool) { return c.mode, c.hasMode }
func (c *Controller) Scale() float64 { return c.scale }
func (c *Controller) Speed() float64 { return c.speed }
func (c *Controller) Time() float64 { return c.time }
func (c *Controller) Playing() bool { return c.playing }

func (c *Controller) State() State {
	st := State{Scale: c.scale, Speed: c.speed, Time: c.time, Playing: c.playing}
	if c.hasMode {
		m := c.mode
		st.CurrentMode = &m
	}
	return st
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
