// Package hdf5 stores flocksphere trajectories in HDF5 files.
//
// A file holds a "config" dataset whose attributes describe the run, and
// one dataset per recorded quantity. Every dataset has the number of
// recorded frames as its leading dimension.
package hdf5

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	fs "github.com/PrincetonUniversity/flocksphere"
	"github.com/PrincetonUniversity/flocksphere/analysis"
	"gonum.org/v1/hdf5"
)

// A Dataset stipulates how to extract data from a frame and where to store them in the HDF5 file.
type Dataset struct {
	// Name the name of the dataset in the HDF5 file.
	Name string

	// Val is a value of the same concrete type as the underlying type of the data.
	Val interface{}

	// Dims are the dimensions of the data for a single frame.
	Dims []int

	// Data is a function that produces the data of a frame as a pointer
	// to a single value or to a slice of row-major concrete values.
	Data func(f fs.Frame) interface{}

	dset   *hdf5.Dataset
	fspace *hdf5.Dataspace
	mspace *hdf5.Dataspace
}

// Config holds the parameters of the HDF5 writer.
type Config struct {
	Output   string      // path of output file
	Frames   int         // number of frames to record
	Attrs    interface{} // pointer to a struct saved as attributes of "config", or nil
	Datasets []*Dataset  // list of datasets
}

// A record is what is stored for each particle of a frame.
// This structure is mapped to a compound datatype in HDF5 so member names are important.
type record struct {
	Pos vec3 // position
	Vel vec3 // velocity
}

type vec3 struct {
	X, Y, Z float64
}

// Particles returns the "particles" dataset: n records per frame.
func Particles(n int) *Dataset {
	return &Dataset{
		Name: "particles",
		Val:  record{},
		Dims: []int{n},
		Data: func(f fs.Frame) interface{} {
			r := make([]record, len(f.Particles))
			for i, p := range f.Particles {
				r[i].Pos = vec3{p.Pos.X, p.Pos.Y, p.Pos.Z}
				r[i].Vel = vec3{p.Vel.X, p.Vel.Y, p.Vel.Z}
			}
			return &r
		},
	}
}

// Steps returns the "step" dataset: the step index of each frame.
func Steps() *Dataset {
	return &Dataset{
		Name: "step",
		Val:  int64(0),
		Data: func(f fs.Frame) interface{} {
			k := int64(f.Step)
			return &k
		},
	}
}

// Order returns the "order" dataset: the order parameter of each frame.
func Order() *Dataset {
	return &Dataset{
		Name: "order",
		Val:  0.0,
		Data: func(f fs.Frame) interface{} {
			v := analysis.OrderParameter(f.Particles)
			return &v
		},
	}
}

// DefaultDatasets are the datasets written for a swarm of n particles.
func DefaultDatasets(n int) []*Dataset {
	return []*Dataset{Particles(n), Steps(), Order()}
}

// FrameCount returns the number of frames Run writes for a simulation:
// the frames it records when run to completion, or a single frame
// holding its last state when it records none.
func FrameCount(s *fs.Simulation) int {
	interval := s.FrameInterval
	if interval <= 0 {
		interval = 1
	}
	return max((s.Params.Iterations-s.Iteration())/interval, 1)
}

// A Writer appends frames to the datasets of an HDF5 file.
type Writer struct {
	conf *Config
	file *hdf5.File
	open []*Dataset
	k    uint
}

// Create creates the output file of conf and its datasets.
func Create(conf *Config) (*Writer, error) {
	if conf.Frames <= 0 {
		return nil, fmt.Errorf("hdf5: %d frames requested", conf.Frames)
	}
	if err := os.MkdirAll(filepath.Dir(conf.Output), 0755); err != nil {
		return nil, err
	}

	file, err := hdf5.CreateFile(conf.Output, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, err
	}
	w := &Writer{conf: conf, file: file}

	if err := saveConfig(file, conf); err != nil {
		checkClose(&err, w)
		return nil, err
	}

	for _, d := range conf.Datasets {
		if err := d.init(file, conf); err != nil {
			checkClose(&err, w)
			return nil, err
		}
		w.open = append(w.open, d)
	}
	return w, nil
}

// Write stores f as the next frame of every dataset.
func (w *Writer) Write(f fs.Frame) error {
	if w.k >= uint(w.conf.Frames) {
		return fmt.Errorf("hdf5: %s: frame %d beyond the %d allocated", w.conf.Output, w.k, w.conf.Frames)
	}
	for _, d := range w.open {
		start := make([]uint, len(d.Dims)+1)
		start[0] = w.k
		if err := d.fspace.SetOffset(start); err != nil {
			return err
		}
		if err := d.dset.WriteSubset(d.Data(f), d.mspace, d.fspace); err != nil {
			return fmt.Errorf("hdf5: %s: %w", d.Name, err)
		}
	}
	w.k++
	return nil
}

// Written returns the number of frames written so far.
func (w *Writer) Written() int {
	return int(w.k)
}

// Close closes the datasets and the file.
func (w *Writer) Close() (err error) {
	for _, d := range w.open {
		checkClose(&err, d)
	}
	w.open = nil
	checkClose(&err, w.file)
	return err
}

// Run runs a simulation to completion and saves its frames to an HDF5 file.
func Run(ctx context.Context, s *fs.Simulation, conf *Config) (err error) {
	if conf.Frames == 0 {
		conf.Frames = FrameCount(s)
	}
	w, err := Create(conf)
	if err != nil {
		return err
	}
	defer checkClose(&err, w)

	err = s.Run(ctx, func(f fs.Frame) error {
		// show progress as percentage
		fmt.Printf("\r% 3d%%", 100*w.Written()/conf.Frames)
		return w.Write(f)
	})
	if err != nil {
		return err
	}
	if w.Written() == 0 {
		if err := w.Write(s.Snapshot()); err != nil {
			return err
		}
	}
	fmt.Printf("\r100%%\n")
	return nil
}

// saveConfig creates a "config" dataset with a null dataspace whose attributes
// reflect the whole configuration plus some other appropriate metadata.
func saveConfig(file *hdf5.File, conf *Config) (err error) {
	null, err := hdf5.CreateDataspace(hdf5.S_NULL)
	if err != nil {
		return err
	}
	defer checkClose(&err, null)

	anytype, err := hdf5.NewDatatypeFromValue(0)
	if err != nil {
		return err
	}
	defer checkClose(&err, anytype)

	dset, err := file.CreateDataset("config", anytype, null)
	if err != nil {
		return err
	}
	defer checkClose(&err, dset)

	scalar, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return err
	}
	defer checkClose(&err, scalar)

	now := time.Now().Format(time.RFC3339)
	if err := writeAttr(dset, scalar, "Time", &now); err != nil {
		return err
	}

	if conf.Attrs == nil {
		return nil
	}
	v := reflect.Indirect(reflect.ValueOf(conf.Attrs))
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("hdf5: config attributes must be a struct, got %s", v.Kind())
	}
	for i := 0; i < v.NumField(); i++ {
		if !v.Type().Field(i).IsExported() {
			continue
		}
		// the HDF5 bindings only map plain values
		switch v.Field(i).Kind() {
		case reflect.Int, reflect.Int64, reflect.Uint64, reflect.Float64, reflect.String:
		default:
			continue
		}
		val := reflect.New(v.Field(i).Type())
		val.Elem().Set(v.Field(i))
		if err := writeAttr(dset, scalar, v.Type().Field(i).Name, val.Interface()); err != nil {
			return err
		}
	}
	return nil
}

// writeAttr writes the value pointed to by ptr as a scalar attribute.
func writeAttr(dset *hdf5.Dataset, scalar *hdf5.Dataspace, name string, ptr interface{}) (err error) {
	dtype, err := hdf5.NewDatatypeFromValue(reflect.ValueOf(ptr).Elem().Interface())
	if err != nil {
		return err
	}
	defer checkClose(&err, dtype)

	attr, err := dset.CreateAttribute(name, dtype, scalar)
	if err != nil {
		return err
	}
	defer checkClose(&err, attr)

	return attr.Write(ptr, dtype)
}

// init creates the dataset in file.
func (d *Dataset) init(file *hdf5.File, conf *Config) (err error) {
	dtype, err := hdf5.NewDatatypeFromValue(d.Val)
	if err != nil {
		return err
	}
	defer checkClose(&err, dtype)

	udims := make([]uint, len(d.Dims)+1)
	udims[0] = uint(conf.Frames)
	for i, n := range d.Dims {
		udims[i+1] = uint(n)
	}

	d.fspace, err = hdf5.CreateSimpleDataspace(udims, nil)
	if err != nil {
		return err
	}

	start := make([]uint, len(udims))
	count := make([]uint, len(udims))
	copy(count, udims)
	count[0] = 1

	if err := d.fspace.SelectHyperslab(start, nil, count, nil); err != nil {
		checkClose(&err, d.fspace)
		return err
	}

	if len(d.Dims) == 0 {
		d.mspace, err = hdf5.CreateDataspace(hdf5.S_SCALAR)
	} else {
		d.mspace, err = hdf5.CreateSimpleDataspace(udims[1:], nil)
	}
	if err != nil {
		checkClose(&err, d.fspace)
		return err
	}

	d.dset, err = file.CreateDataset(d.Name, dtype, d.fspace)
	if err != nil {
		checkClose(&err, d.fspace)
		checkClose(&err, d.mspace)
	}

	return err
}

// Close closes the HDF5 dataset and Dataspaces.
func (d *Dataset) Close() error {
	if err := d.dset.Close(); err != nil {
		return err
	}
	if err := d.mspace.Close(); err != nil {
		return err
	}
	if err := d.fspace.Close(); err != nil {
		return err
	}
	return nil
}

// checkClose checks for errors in deferred calls.
func checkClose(err *error, c io.Closer) {
	if cerr := c.Close(); *err == nil {
		*err = cerr
	}
}
