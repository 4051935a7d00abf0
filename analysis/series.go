package analysis

import (
	fs "github.com/PrincetonUniversity/flocksphere"
)

// An OrderPoint is the order parameter of one frame.
type OrderPoint struct {
	Step      int     `json:"step"`
	Timestamp float64 `json:"timestamp"`
	Order     float64 `json:"order_parameter"`
}

// OrderSeries returns the order parameter of each frame.
func OrderSeries(frames []fs.Frame) []OrderPoint {
	out := make([]OrderPoint, len(frames))
	for i, f := range frames {
		out[i] = OrderPoint{Step: f.Step, Timestamp: f.Timestamp, Order: OrderParameter(f.Particles)}
	}
	return out
}

// Orders returns the order parameters of series.
func Orders(series []OrderPoint) []float64 {
	x := make([]float64, len(series))
	for i, p := range series {
		x[i] = p.Order
	}
	return x
}

// A ClusterPoint describes the clusters of one frame.
type ClusterPoint struct {
	Step      int       `json:"step"`
	Timestamp float64   `json:"timestamp"`
	Count     int       `json:"count"`     // number of clusters
	Largest   int       `json:"largest"`   // size of the largest cluster
	Histogram []float64 `json:"histogram"` // Histogram[s-1] clusters of size s
	Clusters  []Cluster `json:"clusters"`
}

// ClusterSeries returns the clusters of each frame.
func ClusterSeries(frames []fs.Frame, opts ClusterOptions) []ClusterPoint {
	out := make([]ClusterPoint, len(frames))
	for i, f := range frames {
		cs := FindClusters(f.Particles, opts)
		cc := make([][]int, len(cs))
		for k, c := range cs {
			cc[k] = c.Members
		}
		sizes := ClusterSizes(cc)
		p := ClusterPoint{
			Step:      f.Step,
			Timestamp: f.Timestamp,
			Count:     len(cs),
			Histogram: SizeHistogram(sizes, len(f.Particles)),
			Clusters:  cs,
		}
		if len(sizes) > 0 {
			p.Largest = sizes[len(sizes)-1]
		}
		out[i] = p
	}
	return out
}
