package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	fs "github.com/PrincetonUniversity/flocksphere"
	"github.com/PrincetonUniversity/flocksphere/analysis"
)

var frameHeader = []string{"step", "timestamp", "id", "px", "py", "pz", "vx", "vy", "vz"}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

// WriteFramesCSV writes frames as CSV, one row per particle per frame.
func WriteFramesCSV(w io.Writer, frames []fs.Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(frameHeader); err != nil {
		return err
	}
	row := make([]string, len(frameHeader))
	for _, f := range frames {
		row[0] = strconv.Itoa(f.Step)
		row[1] = formatFloat(f.Timestamp)
		for i, p := range f.Particles {
			row[2] = strconv.Itoa(i)
			row[3], row[4], row[5] = formatFloat(p.Pos.X), formatFloat(p.Pos.Y), formatFloat(p.Pos.Z)
			row[6], row[7], row[8] = formatFloat(p.Vel.X), formatFloat(p.Vel.Y), formatFloat(p.Vel.Z)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadFramesCSV reads frames written by WriteFramesCSV. Particles are
// returned as stored; use flocksphere.NewParticle to check them.
func ReadFramesCSV(r io.Reader) ([]fs.Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(frameHeader)
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("store: frames header: %w", err)
	}
	for i, h := range frameHeader {
		if head[i] != h {
			return nil, fmt.Errorf("store: frames header: column %d is %q, expected %q", i+1, head[i], h)
		}
	}

	var frames []fs.Frame
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		step, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("store: line %d: %w", line, err)
		}
		id, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("store: line %d: %w", line, err)
		}
		// timestamp, then px to vz
		var x [7]float64
		for k, col := range [7]int{1, 3, 4, 5, 6, 7, 8} {
			if x[k], err = strconv.ParseFloat(rec[col], 64); err != nil {
				return nil, fmt.Errorf("store: line %d: %w", line, err)
			}
		}

		if n := len(frames); n == 0 || frames[n-1].Step != step {
			if n > 0 && step < frames[n-1].Step {
				return nil, fmt.Errorf("store: line %d: step %d after step %d", line, step, frames[n-1].Step)
			}
			frames = append(frames, fs.Frame{Step: step, Timestamp: x[0]})
		}
		f := &frames[len(frames)-1]
		if id != len(f.Particles) {
			return nil, fmt.Errorf("store: line %d: particle %d of step %d out of order", line, id, step)
		}
		var p fs.Particle
		p.Pos.X, p.Pos.Y, p.Pos.Z = x[1], x[2], x[3]
		p.Vel.X, p.Vel.Y, p.Vel.Z = x[4], x[5], x[6]
		f.Particles = append(f.Particles, p)
	}
	return frames, nil
}

// SaveFramesCSV writes the frames of r next to its JSON result
// and returns the path of the file.
func (l Layout) SaveFramesCSV(r *fs.Result) (string, error) {
	path := l.Path(Simulation, r.Info.Tag, r.Info.ID, "csv")
	return path, writeFile(path, func(w io.Writer) error {
		return WriteFramesCSV(w, r.Frames)
	})
}

// WriteOrderCSV writes an order parameter series as CSV.
func WriteOrderCSV(w io.Writer, series []analysis.OrderPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"step", "timestamp", "order_parameter"}); err != nil {
		return err
	}
	for _, p := range series {
		if err := cw.Write([]string{strconv.Itoa(p.Step), formatFloat(p.Timestamp), formatFloat(p.Order)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
