package store

import (
	"encoding/json"
	"fmt"
	"io"

	fs "github.com/PrincetonUniversity/flocksphere"
	"github.com/PrincetonUniversity/flocksphere/ensemble"
)

func writeJSON(path string, v interface{}) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func readJSON(path string, v interface{}) (err error) {
	f, err := open(path)
	if err != nil {
		return err
	}
	defer checkClose(&err, f)
	return decodeJSON(f, v)
}

func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// SaveEnsemble writes e to its place in the ensemble directory
// and returns the path of the file.
func (l Layout) SaveEnsemble(e *ensemble.Entry) (string, error) {
	path := l.Path(Ensemble, e.Tag, e.ID, "json")
	return path, writeJSON(path, e)
}

// LoadEnsemble reads ensemble entry tag-id. Its particles are checked
// against its parameters as in flocksphere.NewParticle.
func (l Layout) LoadEnsemble(tag string, id int) (*ensemble.Entry, error) {
	e := new(ensemble.Entry)
	path := l.Path(Ensemble, tag, id, "json")
	if err := readJSON(path, e); err != nil {
		return nil, err
	}
	if len(e.Particles) != e.Params.N {
		return nil, fmt.Errorf("%s: %w: %d particles, expected %d", path, fs.ErrInconsistentFrame, len(e.Particles), e.Params.N)
	}
	if err := repair(e.Particles, e.Params.Radius, e.Params.Speed); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}

// ListEnsembles returns the keys of the stored ensemble entries.
func (l Layout) ListEnsembles() ([]Key, error) {
	return l.List(Ensemble, "json")
}

// SaveResult writes r to its place in the simulation directory
// and returns the path of the file.
func (l Layout) SaveResult(r *fs.Result) (string, error) {
	path := l.Path(Simulation, r.Info.Tag, r.Info.ID, "json")
	return path, writeJSON(path, r)
}

// LoadResult reads the result of run tag-id. All its frames are checked
// against the parameters of the run.
func (l Layout) LoadResult(tag string, id int) (*fs.Result, error) {
	r := new(fs.Result)
	path := l.Path(Simulation, tag, id, "json")
	if err := readJSON(path, r); err != nil {
		return nil, err
	}
	p := r.Info.Params
	for _, f := range r.Frames {
		if err := repair(f.Particles, p.Radius, p.Speed); err != nil {
			return nil, fmt.Errorf("%s: step %d: %w", path, f.Step, err)
		}
	}
	if err := repair(r.FinalState, p.Radius, p.Speed); err != nil {
		return nil, fmt.Errorf("%s: final state: %w", path, err)
	}
	return r, nil
}

// ListResults returns the keys of the stored run results.
func (l Layout) ListResults() ([]Key, error) {
	return l.List(Simulation, "json")
}

// repair snaps particles within tolerance back onto the invariants,
// in place. Stored data always carry velocities.
func repair(swarm []fs.Particle, radius, speed float64) error {
	for i, p := range swarm {
		q, err := fs.NewParticle(i, p.Pos, p.Vel, radius, speed, nil)
		if err != nil {
			return err
		}
		swarm[i] = q
	}
	return nil
}
