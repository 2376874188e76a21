package anyvc

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// LogFloor is the smallest probability whose logarithm is
// taken by BoundaryPrior.
const LogFloor = 1e-7

// BoundaryPrior computes a log-likelihood style prior on
// the endpoints of a noise schedule:
//
//	log(max(1-alphasBar[last], LogFloor)) + log(max(alphasBar[0], LogFloor))
//
// It is largest when the first point retains the whole
// signal and the last point retains none of it.
// The result has one component, and it is finite for any
// alphasBar with entries in [0, 1].
func BoundaryPrior(alphasBar anydiff.Res) anydiff.Res {
	n := alphasBar.Output().Len()
	if n == 0 {
		panic("empty noise schedule")
	}
	return anydiff.Pool(alphasBar, func(a anydiff.Res) anydiff.Res {
		last := anydiff.Complement(anydiff.Slice(a, n-1, n))
		first := anydiff.Slice(a, 0, 1)
		return anydiff.Add(ClampLog(last, LogFloor), ClampLog(first, LogFloor))
	})
}

// ClampLog computes log(max(x, floor)) for every
// component x of in.
//
// Components below floor get a zero gradient.
func ClampLog(in anydiff.Res, floor float64) anydiff.Res {
	values := VectorFloats(in.Output())
	for i, x := range values {
		values[i] = math.Log(math.Max(x, floor))
	}
	c := in.Output().Creator()
	return &clampLogRes{
		In:     in,
		Floor:  floor,
		OutVec: c.MakeVectorData(c.MakeNumericList(values)),
	}
}

type clampLogRes struct {
	In     anydiff.Res
	Floor  float64
	OutVec anyvec.Vector
}

func (c *clampLogRes) Output() anyvec.Vector {
	return c.OutVec
}

func (c *clampLogRes) Vars() anydiff.VarSet {
	return c.In.Vars()
}

func (c *clampLogRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	inValues := VectorFloats(c.In.Output())
	down := VectorFloats(u)
	for i, x := range inValues {
		if x >= c.Floor {
			down[i] /= x
		} else {
			down[i] = 0
		}
	}
	cr := u.Creator()
	c.In.Propagate(cr.MakeVectorData(cr.MakeNumericList(down)), g)
}
