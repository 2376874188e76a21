package anyvc

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// RepeatRows expands a vector with one value per row into
// a packed matrix with cols columns, so that every entry
// of row i equals perRow[i].
func RepeatRows(perRow anydiff.Res, cols int) anydiff.Res {
	c := perRow.Output().Creator()
	ones := c.MakeVector(cols)
	ones.AddScalar(c.MakeNumeric(1))
	return anydiff.MatMul(false, false,
		&anydiff.Matrix{Data: perRow, Rows: perRow.Output().Len(), Cols: 1},
		&anydiff.Matrix{Data: anydiff.NewConst(ones), Rows: 1, Cols: cols},
	).Data
}

// ScaleRows multiplies every row of the packed matrix m
// by the corresponding entry of scalers.
// The number of rows is the length of scalers.
func ScaleRows(m, scalers anydiff.Res) anydiff.Res {
	rows := scalers.Output().Len()
	if rows == 0 || m.Output().Len()%rows != 0 {
		panic(fmt.Sprintf("cannot scale %d values by %d row scalers",
			m.Output().Len(), rows))
	}
	return anydiff.Mul(m, RepeatRows(scalers, m.Output().Len()/rows))
}

// VectorFloats copies a vector's contents into a new
// []float64.
//
// The vector must use []float32 or []float64 as its
// numeric list type.
func VectorFloats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	case []float64:
		return append([]float64{}, data...)
	default:
		panic(fmt.Sprintf("unsupported numeric list: %T", data))
	}
}

// NumericFloat converts a float32 or float64 Numeric to
// a float64.
func NumericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric: %T", n))
	}
}

// scalarValue reads the only component of a
// one-component result.
func scalarValue(r anydiff.Res) float64 {
	return NumericFloat(anyvec.Sum(r.Output()))
}

func checkLen(name string, r anydiff.Res, expected int) {
	if r.Output().Len() != expected {
		panic(fmt.Sprintf("%s: expected length %d but got %d", name,
			expected, r.Output().Len()))
	}
}
