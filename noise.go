package flocksphere

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseKind selects the distribution of the noise angle.
type NoiseKind int

// Available noise distributions.
const (
	Uniform NoiseKind = iota // angle uniform in [-η·π, η·π]
	Normal                   // angle normal with standard deviation η·σ
)

var noiseNames = map[NoiseKind]string{
	Uniform: "uniform",
	Normal:  "normal",
}

// String returns the configuration name of the distribution.
func (k NoiseKind) String() string {
	if s, ok := noiseNames[k]; ok {
		return s
	}
	return fmt.Sprintf("NoiseKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k NoiseKind) MarshalText() ([]byte, error) {
	if _, ok := noiseNames[k]; !ok {
		return nil, fmt.Errorf("%w: bad noise kind %d", ErrInvalidConfig, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *NoiseKind) UnmarshalText(text []byte) error {
	v, err := ParseNoiseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseNoiseKind returns the distribution with the given name.
func ParseNoiseKind(s string) (NoiseKind, error) {
	for k, name := range noiseNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: bad noise kind %q (possible values: uniform, normal)", ErrInvalidConfig, s)
}

// A NoiseModel is the distribution of the random rotation applied to
// headings. Eta scales its spread: Eta = 0 disables noise entirely.
type NoiseModel struct {
	Kind  NoiseKind `json:"kind"`
	Sigma float64   `json:"sigma"` // standard deviation of Normal at η = 1
}

func (m NoiseModel) validate() error {
	if _, ok := noiseNames[m.Kind]; !ok {
		return fmt.Errorf("%w: bad noise kind %d", ErrInvalidConfig, int(m.Kind))
	}
	if !(m.Sigma >= 0) || math.IsInf(m.Sigma, 0) {
		return invalid("noise sigma must be non-negative and finite, got %g", m.Sigma)
	}
	return nil
}

// Sample draws a noise angle in radians for noise strength η.
func (m NoiseModel) Sample(η float64, src rand.Source) float64 {
	switch m.Kind {
	case Uniform:
		if η == 0 {
			return 0
		}
		return distuv.Uniform{Min: -η * math.Pi, Max: η * math.Pi, Src: src}.Rand()
	case Normal:
		σ := η * m.Sigma
		if σ == 0 {
			return 0
		}
		return distuv.Normal{Mu: 0, Sigma: σ, Src: src}.Rand()
	}
	panic(fmt.Sprintf("flocksphere: unknown noise kind %d", int(m.Kind)))
}
