package experiment

import (
	"errors"
	"fmt"
	"slices"
)

// ErrNoSuccessfulTrials is returned by Summarize when no trial found the peak.
var ErrNoSuccessfulTrials = errors.New("experiment: no successful trials")

// ResultSet holds the latencies of successful trials in microseconds, in completion order.
type ResultSet struct {
	latencies []int64
}

// Append adds one latency.
func (r *ResultSet) Append(us int64) {
	r.latencies = append(r.latencies, us)
}

// Len returns the number of recorded latencies.
func (r *ResultSet) Len() int {
	return len(r.latencies)
}

// Latencies returns a copy of the recorded latencies.
func (r *ResultSet) Latencies() []int64 {
	return slices.Clone(r.latencies)
}

// Summary describes a ResultSet. All values are in microseconds.
type Summary struct {
	Min    int64
	Max    int64
	Mean   float64
	Median int64
	Count  int
}

// String formats the summary as the report line printed at the end of a run.
func (s Summary) String() string {
	return fmt.Sprintf("Min: %d Max: %d avg: %.6g median: %d", s.Min, s.Max, s.Mean, s.Median)
}

// Summarize computes the summary statistics. The median is the element at index count/2 of
// the ascending order, the upper middle for an even count.
func (r *ResultSet) Summarize() (Summary, error) {
	if len(r.latencies) == 0 {
		return Summary{}, ErrNoSuccessfulTrials
	}

	sorted := slices.Clone(r.latencies)
	slices.Sort(sorted)

	var total float64
	for _, v := range sorted {
		total += float64(v)
	}

	return Summary{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   total / float64(len(sorted)),
		Median: sorted[len(sorted)/2],
		Count:  len(sorted),
	}, nil
}
