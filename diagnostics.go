package anyvc

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Keys of the arrays returned by Diagnostics.Arrays.
const (
	BaseKey      = "base"
	DenoisedKey  = "denoised"
	AlphasBarKey = "alphas-bar"
)

// Diagnostics stores host copies of the intermediate
// values of a loss computation.
// None of these values are part of the gradient graph.
type Diagnostics struct {
	// Base is the noised reference signal, packed like the
	// segments.
	Base []float64

	// Denoised is the denoiser's prediction.
	Denoised []float64

	// AlphasBar is sigmoid(logSNR) for the whole schedule.
	AlphasBar []float64

	// Steps and NullMask are the random draws for each row.
	Steps    []int
	NullMask []bool
}

// Arrays returns the named diagnostic arrays.
func (d *Diagnostics) Arrays() map[string][]float64 {
	return map[string][]float64{
		BaseKey:      d.Base,
		DenoisedKey:  d.Denoised,
		AlphasBarKey: d.AlphasBar,
	}
}

// Stats summarizes an array.
type Stats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summary computes statistics for every array returned by
// Arrays.
// Empty arrays are omitted.
func (d *Diagnostics) Summary() map[string]Stats {
	res := map[string]Stats{}
	for name, arr := range d.Arrays() {
		if len(arr) == 0 {
			continue
		}
		var s Stats
		s.Mean, s.StdDev = stat.MeanStdDev(arr, nil)
		s.Min = floats.Min(arr)
		s.Max = floats.Max(arr)
		res[name] = s
	}
	return res
}

// NullFraction returns the fraction of rows that used the
// null speaker embedding.
func (d *Diagnostics) NullFraction() float64 {
	if len(d.NullMask) == 0 {
		return 0
	}
	var count int
	for _, x := range d.NullMask {
		if x {
			count++
		}
	}
	return float64(count) / float64(len(d.NullMask))
}

// Fprint writes a human-readable summary to w.
func (d *Diagnostics) Fprint(w io.Writer) error {
	summary := d.Summary()
	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := summary[name]
		_, err := fmt.Fprintf(w, "%s: mean=%f std=%f min=%f max=%f\n", name,
			s.Mean, s.StdDev, s.Min, s.Max)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "null fraction: %f\n", d.NullFraction())
	return err
}
