// Package vctrain connects the anyvc training objective
// to anysgd.
package vctrain

import (
	"errors"
	"runtime"
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvc"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"go.uber.org/zap"
)

// A Batch stores a packed batch of segments and the
// speaker of each segment.
type Batch struct {
	Segments anyvec.Vector
	Speakers []int
}

// A Trainer constructs batches and computes gradients for
// the anyvc loss.
type Trainer struct {
	Sampler   *anyvc.SegmentSampler
	Assembler *anyvc.LossAssembler
	Params    []*anydiff.Var

	// MaxGos specifies the maximum goroutines to use
	// simultaneously for fetching samples.
	// If it is 0, GOMAXPROCS is used.
	MaxGos int

	// Logger, if non-nil, receives a debug entry for every
	// gradient computation.
	Logger *zap.Logger

	// After every gradient computation, LastCost is set to
	// the loss for the batch, and LastResult to the full
	// result.
	LastCost   float64
	LastResult *anyvc.Result
}

// Fetch produces a *Batch for the subset of samples.
// The s argument must implement SampleList.
// The batch may not be empty.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	if s.Len() == 0 {
		return nil, errors.New("fetch batch: empty batch")
	}

	l := s.(SampleList)
	speeches := make([]anyvec.Vector, l.Len())
	lengths := make([]int, l.Len())
	speakers := make([]int, l.Len())

	idxChan := make(chan int, l.Len())
	for i := 0; i < l.Len(); i++ {
		idxChan <- i
	}
	close(idxChan)

	maxGos := t.MaxGos
	if maxGos == 0 {
		maxGos = runtime.GOMAXPROCS(0)
	}

	wg := sync.WaitGroup{}
	errChan := make(chan error, maxGos)
	for i := 0; i < maxGos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				sample, err := l.GetSample(i)
				if err != nil {
					errChan <- essentials.AddCtx("fetch batch", err)
					return
				}
				speeches[i] = sample.Speech
				lengths[i] = sample.Length
				speakers[i] = sample.Speaker
			}
		}()
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}

	return &Batch{
		Segments: t.Sampler.Sample(speeches, lengths),
		Speakers: speakers,
	}, nil
}

// TotalCost computes the loss for the batch.
func (t *Trainer) TotalCost(b *Batch) *anyvc.Result {
	return t.Assembler.Compute(b.Speakers, b.Segments)
}

// Gradient computes the gradient of the batch's loss.
// It also sets t.LastCost and t.LastResult.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b anysgd.Batch) anydiff.Grad {
	res := anydiff.NewGrad(t.Params...)

	result := t.TotalCost(b.(*Batch))
	t.LastResult = result
	t.LastCost = anyvc.NumericFloat(anyvec.Sum(result.Loss.Output()))

	c := result.Loss.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	result.Loss.Propagate(upstream, res)

	if t.Logger != nil {
		t.Logger.Debug("computed gradient",
			zap.Float64("loss", t.LastCost),
			zap.Float64(anyvc.NoiseEstimKey, result.Losses[anyvc.NoiseEstimKey]),
			zap.Float64(anyvc.ScheduleLossKey, result.Losses[anyvc.ScheduleLossKey]),
			zap.Float64("null_fraction", result.Diagnostics.NullFraction()),
		)
	}

	return res
}
