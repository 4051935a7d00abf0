package hdf5

import (
	"fmt"

	fs "github.com/PrincetonUniversity/flocksphere"
	"gonum.org/v1/hdf5"
)

// A Loader sequentially loads frames from an HDF5 dataset of particle records.
type Loader struct {
	i uint // index of current frame
	n uint // total number of frames

	data []record // data buffer

	file   *hdf5.File
	dset   *hdf5.Dataset
	fspace *hdf5.Dataspace
	mspace *hdf5.Dataspace
}

// NewLoader opens a dataset in an HDF5 file and returns an initialized loader.
func NewLoader(filepath, dataset string) (l *Loader, err error) {
	l = new(Loader)
	l.file, err = hdf5.OpenFile(filepath, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			checkClose(&err, l)
			l = nil
		}
	}()

	l.dset, err = l.file.OpenDataset(dataset)
	if err != nil {
		return l, err
	}
	l.fspace = l.dset.Space()
	dims, _, err := l.fspace.SimpleExtentDims()
	if err != nil {
		return l, err
	}
	if len(dims) != 2 {
		return l, fmt.Errorf("hdf5: %s: expected 2 dimensions, got %d", dataset, len(dims))
	}
	if dims[0] == 0 {
		return l, fmt.Errorf("hdf5: %s: no frames", dataset)
	}
	l.n = dims[0]

	l.mspace, err = hdf5.CreateSimpleDataspace(dims[1:], nil)
	if err != nil {
		return l, err
	}

	start := []uint{0, 0}
	count := []uint{1, dims[1]}
	if err := l.fspace.SelectHyperslab(start, nil, count, nil); err != nil {
		return l, err
	}

	l.data = make([]record, dims[1])
	return l, nil
}

// Len returns the number of frames in the dataset.
func (l *Loader) Len() int {
	return int(l.n)
}

// Load loads the next frame available into s
// and cycles when everything has already been loaded.
func (l *Loader) Load(s *[]fs.Particle) error {
	start := []uint{l.i, 0}
	if err := l.fspace.SetOffset(start); err != nil {
		return err
	}
	l.i = (l.i + 1) % l.n

	if err := l.dset.ReadSubset(&l.data, l.mspace, l.fspace); err != nil {
		return err
	}

	*s = (*s)[:0]
	for _, r := range l.data {
		var p fs.Particle
		p.Pos.X, p.Pos.Y, p.Pos.Z = r.Pos.X, r.Pos.Y, r.Pos.Z
		p.Vel.X, p.Vel.Y, p.Vel.Z = r.Vel.X, r.Vel.Y, r.Vel.Z
		*s = append(*s, p)
	}
	return nil
}

// Close closes the dataset and the file.
func (l *Loader) Close() (err error) {
	if l.mspace != nil {
		checkClose(&err, l.mspace)
	}
	if l.fspace != nil {
		checkClose(&err, l.fspace)
	}
	if l.dset != nil {
		checkClose(&err, l.dset)
	}
	checkClose(&err, l.file)
	return err
}

// ReadFrames reads every frame written by Run or a Writer with the default
// datasets. Timestamps are the step indices scaled by dt. Particles are
// checked against radius and speed as in flocksphere.NewParticle.
func ReadFrames(path string, dt, radius, speed float64) (frames []fs.Frame, err error) {
	steps, err := readSteps(path)
	if err != nil {
		return nil, err
	}

	l, err := NewLoader(path, "particles")
	if err != nil {
		return nil, err
	}
	defer checkClose(&err, l)
	if l.Len() != len(steps) {
		return nil, fmt.Errorf("hdf5: %s: %d steps for %d frames", path, len(steps), l.Len())
	}

	frames = make([]fs.Frame, l.Len())
	for k := range frames {
		f := &frames[k]
		if err := l.Load(&f.Particles); err != nil {
			return nil, err
		}
		for i, p := range f.Particles {
			q, err := fs.NewParticle(i, p.Pos, p.Vel, radius, speed, nil)
			if err != nil {
				return nil, fmt.Errorf("hdf5: %s: frame %d: %w", path, k, err)
			}
			f.Particles[i] = q
		}
		f.Step = int(steps[k])
		f.Timestamp = float64(f.Step) * dt
	}
	return frames, nil
}

func readSteps(path string) (steps []int64, err error) {
	file, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, err
	}
	defer checkClose(&err, file)

	dset, err := file.OpenDataset("step")
	if err != nil {
		return nil, err
	}
	defer checkClose(&err, dset)

	space := dset.Space()
	defer checkClose(&err, space)
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, err
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("hdf5: step: expected 1 dimension, got %d", len(dims))
	}

	steps = make([]int64, dims[0])
	if err := dset.Read(&steps); err != nil {
		return nil, err
	}
	return steps, nil
}
