package store

import (
	"bufio"
	"fmt"
	"strings"

	fs "github.com/PrincetonUniversity/flocksphere"
	"github.com/phil-mansfield/table"
)

// ReadTable reads an initial state from a whitespace-separated text table
// with one particle per line: x y z, optionally followed by vx vy vz.
// Particles without velocities get a zero one, which flocksphere.New
// replaces by a random heading.
func ReadTable(path string) ([]fs.Particle, error) {
	n, err := tableWidth(path)
	if err != nil {
		return nil, err
	}
	var idx []int
	switch {
	case n >= 6:
		idx = []int{0, 1, 2, 3, 4, 5}
	case n >= 3:
		idx = []int{0, 1, 2}
	default:
		return nil, fmt.Errorf("store: %s: %d columns, expected x y z [vx vy vz]", path, n)
	}

	cols, err := table.ReadTable(path, idx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: %s: %w", path, err)
	}

	swarm := make([]fs.Particle, len(cols[0]))
	for i := range swarm {
		swarm[i].Pos.X, swarm[i].Pos.Y, swarm[i].Pos.Z = cols[0][i], cols[1][i], cols[2][i]
		if len(cols) == 6 {
			swarm[i].Vel.X, swarm[i].Vel.Y, swarm[i].Vel.Z = cols[3][i], cols[4][i], cols[5][i]
		}
	}
	return swarm, nil
}

// tableWidth returns the number of columns on the first data line of a table.
func tableWidth(path string) (n int, err error) {
	f, err := open(path)
	if err != nil {
		return 0, err
	}
	defer checkClose(&err, f)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return len(strings.Fields(line)), nil
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("store: %s: empty table", path)
}
