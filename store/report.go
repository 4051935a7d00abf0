package store

import (
	"io"

	"github.com/PrincetonUniversity/flocksphere/analysis"
)

// A Report is the stored analysis of a run.
type Report struct {
	Source        Key                     `json:"source"`
	ClusterRadius float64                 `json:"cluster_radius"`
	MinAlignment  float64                 `json:"min_alignment"`
	BurnIn        int                     `json:"burn_in"` // frames ignored by the summaries
	Order         analysis.Summary        `json:"order"`
	LargestGroup  analysis.Summary        `json:"largest_cluster"`
	OrderSeries   []analysis.OrderPoint   `json:"order_series"`
	ClusterSeries []analysis.ClusterPoint `json:"cluster_series,omitempty"`
}

// SaveReport writes the analysis of run r.Source under the analysis
// directory, as JSON along with a CSV of the order parameter series.
// It returns the path of the JSON file.
func (l Layout) SaveReport(r *Report) (string, error) {
	path := l.Path(Analysis, r.Source.Tag, r.Source.ID, "json")
	if err := writeJSON(path, r); err != nil {
		return "", err
	}
	err := writeFile(l.Path(Analysis, r.Source.Tag, r.Source.ID, "csv"), func(w io.Writer) error {
		return WriteOrderCSV(w, r.OrderSeries)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// LoadReport reads the analysis of run tag-id.
func (l Layout) LoadReport(tag string, id int) (*Report, error) {
	r := new(Report)
	if err := readJSON(l.Path(Analysis, tag, id, "json"), r); err != nil {
		return nil, err
	}
	return r, nil
}
