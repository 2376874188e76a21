package vcmodel

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvc"
)

// Diffusion is the variance-preserving forward process
// defined by a Schedule.
//
// Step s (zero-based) uses the log-SNR at schedule index
// s+1, since index 0 is the clean boundary.
type Diffusion struct {
	Schedule *Schedule
}

// Forward computes the mean sqrt(alpha)*x and the per-row
// standard deviation sqrt(1-alpha) of the noised
// segments, where alpha = sigmoid(logSNR).
func (d *Diffusion) Forward(segments anydiff.Res, steps []int) (mean, std anydiff.Res) {
	logSNR, _ := d.Schedule.Schedule()
	n := logSNR.Output().Len()
	picked := make([]anydiff.Res, len(steps))
	for i, step := range steps {
		if step < 0 || step+1 >= n {
			panic(fmt.Sprintf("step %d out of range [0, %d)", step, n-1))
		}
		picked[i] = anydiff.Slice(logSNR, step+1, step+2)
	}
	rowSNR := anydiff.Concat(picked...)
	c := rowSNR.Output().Creator()
	half := c.MakeNumeric(0.5)

	// sqrt(sigmoid(x)) = exp(0.5*log(sigmoid(x))), and
	// 1-sigmoid(x) = sigmoid(-x).
	meanScale := anydiff.Exp(anydiff.Scale(anydiff.LogSigmoid(rowSNR), half))
	negSNR := anydiff.Scale(rowSNR, c.MakeNumeric(-1))
	std = anydiff.Exp(anydiff.Scale(anydiff.LogSigmoid(negSNR), half))
	mean = anyvc.ScaleRows(segments, meanScale)
	return mean, std
}
