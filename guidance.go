package anyvc

import (
	"fmt"
	"math/rand"

	"github.com/unixpickle/anydiff"
)

// normStabilizer is added to squared row norms before
// normalizing, so that all-zero rows stay finite.
const normStabilizer = 1e-24

// GuidanceDropout implements the conditioning dropout
// used for classifier-free guidance.
//
// Each row of a batch of speaker embeddings is replaced,
// with probability NullProb, by a learned null embedding.
// This teaches the denoiser to work both with and without
// a speaker identity.
type GuidanceDropout struct {
	NullProb float64

	// Rand is the source of the dropout mask.
	// If nil, the math/rand global source is used.
	Rand *rand.Rand
}

// Mask draws a dropout mask for n rows.
// A true entry means the row is replaced.
func (g *GuidanceDropout) Mask(n int) []bool {
	res := make([]bool, n)
	for i := range res {
		res[i] = g.uniform() < g.NullProb
	}
	return res
}

// Apply substitutes the null embedding into every masked
// row of the packed embeddings, and then L2-normalizes
// every row.
//
// The substitution is an elementwise select, so gradients
// reach both the looked-up embeddings and the null
// embedding.
func (g *GuidanceDropout) Apply(embeds, null anydiff.Res, mask []bool) anydiff.Res {
	rows := len(mask)
	cols := null.Output().Len()
	if rows == 0 || embeds.Output().Len() != rows*cols {
		panic(fmt.Sprintf("embeddings: expected %d rows of %d values but got %d values",
			rows, cols, embeds.Output().Len()))
	}
	keep := make([]float64, rows*cols)
	drop := make([]float64, rows*cols)
	for i, masked := range mask {
		row := keep
		if masked {
			row = drop
		}
		for j := 0; j < cols; j++ {
			row[i*cols+j] = 1
		}
	}
	c := embeds.Output().Creator()
	keepRes := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(keep)))
	dropRes := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(drop)))
	nullRows := anydiff.AddRepeated(anydiff.NewConst(c.MakeVector(rows*cols)), null)
	selected := anydiff.Add(
		anydiff.Mul(embeds, keepRes),
		anydiff.Mul(nullRows, dropRes),
	)
	return NormalizeRows(selected, rows)
}

func (g *GuidanceDropout) uniform() float64 {
	if g.Rand == nil {
		return rand.Float64()
	}
	return g.Rand.Float64()
}

// NormalizeRows scales every row of a packed matrix to
// unit L2 norm.
func NormalizeRows(m anydiff.Res, rows int) anydiff.Res {
	if rows == 0 || m.Output().Len()%rows != 0 {
		panic("row count must divide input length")
	}
	cols := m.Output().Len() / rows
	c := m.Output().Creator()
	return anydiff.Pool(m, func(m anydiff.Res) anydiff.Res {
		sqNorms := anydiff.SumCols(&anydiff.Matrix{
			Data: anydiff.Square(m),
			Rows: rows,
			Cols: cols,
		})
		invNorms := anydiff.Pow(
			anydiff.AddScalar(sqNorms, c.MakeNumeric(normStabilizer)),
			c.MakeNumeric(-0.5),
		)
		return ScaleRows(m, invNorms)
	})
}
