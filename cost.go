package anyvc

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// MAE is an anynet.Cost which measures the mean absolute
// difference between the desired and actual outputs.
type MAE struct{}

// Cost computes, for each row, the mean absolute
// difference between the rows of desired and actual.
func (m MAE) Cost(desired, actual anydiff.Res, n int) anydiff.Res {
	abs := absDiff(desired, actual)
	if n == 0 || abs.Output().Len()%n != 0 {
		panic("batch size must divide input length")
	}
	cols := abs.Output().Len() / n
	sum := anydiff.SumCols(&anydiff.Matrix{
		Data: abs,
		Rows: n,
		Cols: cols,
	})
	return anydiff.Scale(sum, sum.Output().Creator().MakeNumeric(1/float64(cols)))
}

// MeanCost averages the per-row costs of a batch of n
// rows.
// The result has one component.
//
// Since every row has the same length, MeanCost with MAE
// is the mean absolute difference over all components.
func MeanCost(c anynet.Cost, desired, actual anydiff.Res, n int) anydiff.Res {
	if n == 0 {
		panic("cannot average an empty batch")
	}
	sum := anydiff.Sum(c.Cost(desired, actual, n))
	return anydiff.Scale(sum, sum.Output().Creator().MakeNumeric(1/float64(n)))
}

// absDiff computes |desired - actual|.
// At zero, the gradient of the absolute value is taken to
// be 1.
func absDiff(desired, actual anydiff.Res) anydiff.Res {
	if desired.Output().Len() != actual.Output().Len() {
		panic(fmt.Sprintf("length mismatch: %d vs %d", desired.Output().Len(),
			actual.Output().Len()))
	}
	diff := anydiff.Sub(desired, actual)
	c := diff.Output().Creator()
	signs := diff.Output().Copy()
	anyvec.LessThan(signs, c.MakeNumeric(0))
	signs.Scale(c.MakeNumeric(-2))
	signs.AddScalar(c.MakeNumeric(1))
	return anydiff.Mul(diff, anydiff.NewConst(signs))
}
