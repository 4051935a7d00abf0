package flocksphere

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/PrincetonUniversity/flocksphere/geom"
	"github.com/google/uuid"
)

// A Frame is an immutable snapshot of a simulation.
type Frame struct {
	Step      int        `json:"step"`
	Timestamp float64    `json:"timestamp"` // simulated time, Step·Dt
	Particles []Particle `json:"particles"`
}

type vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type particleJSON struct {
	Position vec3  `json:"position"`
	Velocity *vec3 `json:"velocity,omitempty"`
}

// MarshalJSON encodes p as {"position": {x,y,z}, "velocity": {x,y,z}}.
func (p Particle) MarshalJSON() ([]byte, error) {
	v := vec3(p.Vel)
	return json.Marshal(particleJSON{Position: vec3(p.Pos), Velocity: &v})
}

// UnmarshalJSON decodes the format of MarshalJSON. A missing velocity
// decodes as zero, which NewParticle treats as unknown.
func (p *Particle) UnmarshalJSON(b []byte) error {
	var w particleJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	p.Pos = geom.Vec(w.Position)
	p.Vel = geom.Vec{}
	if w.Velocity != nil {
		p.Vel = geom.Vec(*w.Velocity)
	}
	return nil
}

// RunInfo identifies a run. It is attached by the caller of the engine.
type RunInfo struct {
	ID         int           `json:"id"`
	Tag        string        `json:"tag"`
	UUID       uuid.UUID     `json:"uuid"`
	EnsembleID int           `json:"ensemble_id"` // -1 when the initial state was not a stored ensemble
	Params     Params        `json:"params"`
	Seed       uint64        `json:"seed"`
	TotalSteps int           `json:"total_steps"`
	Duration   time.Duration `json:"duration"` // wall clock
	CreatedAt  time.Time     `json:"created_at"`
}

// A Result is a finished run: its metadata, the recorded frames
// and the last state.
type Result struct {
	Info       RunInfo    `json:"info"`
	Frames     []Frame    `json:"frames"`
	FinalState []Particle `json:"final_state"`
}

// A FrameCollector accumulates the frames recorded during a run. Its Add
// method is meant to be passed to Simulation.Run.
type FrameCollector struct {
	info   RunInfo
	start  time.Time
	frames []Frame
}

// NewCollector starts the wall clock of a run described by info.
// A nil UUID is replaced by a random one.
func NewCollector(info RunInfo) *FrameCollector {
	now := time.Now()
	if info.UUID == uuid.Nil {
		info.UUID = uuid.New()
	}
	if info.CreatedAt.IsZero() {
		info.CreatedAt = now.UTC()
	}
	return &FrameCollector{info: info, start: now}
}

// Add appends f. Frames must come in increasing step order.
func (c *FrameCollector) Add(f Frame) error {
	if n := len(c.frames); n > 0 && f.Step <= c.frames[n-1].Step {
		return fmt.Errorf("flocksphere: frame at step %d recorded after step %d", f.Step, c.frames[n-1].Step)
	}
	c.frames = append(c.frames, f)
	return nil
}

// Len returns the number of frames collected so far.
func (c *FrameCollector) Len() int {
	return len(c.frames)
}

// Finalize stops the clock and returns the result of the run
// whose last state is final.
func (c *FrameCollector) Finalize(final Frame) Result {
	info := c.info
	info.TotalSteps = final.Step
	info.Duration = time.Since(c.start)
	return Result{
		Info:       info,
		Frames:     c.frames,
		FinalState: final.Particles,
	}
}
