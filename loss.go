package anyvc

import (
	"fmt"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Names of the sub-losses in Result.Losses.
const (
	NoiseEstimKey   = "noise-estim"
	ScheduleLossKey = "schedule-loss"
)

// A LossAssembler computes the training loss for batches
// of segments.
//
// Every call to Compute draws fresh diffusion steps,
// forward noise, and guidance dropout.
type LossAssembler struct {
	Config Config

	Diffusion Diffusion
	Denoiser  Denoiser
	Speakers  SpeakerTable
	Scheduler Scheduler

	// Rand is the source of diffusion steps, noise, and
	// dropout masks.
	// If nil, the math/rand global source is used.
	Rand *rand.Rand
}

// A Result is the output of LossAssembler.Compute.
type Result struct {
	// Loss is the one-component differentiable loss.
	Loss anydiff.Res

	// NoiseEstim and ScheduleLoss are the terms of Loss,
	// where Loss = NoiseEstim - ScheduleLoss.
	NoiseEstim   anydiff.Res
	ScheduleLoss anydiff.Res

	// Losses maps sub-loss names to their values.
	Losses map[string]float64

	Diagnostics *Diagnostics
}

// Compute computes the loss for a batch of segments,
// packed as len(sid) rows of l.Config.SegLen values.
//
// Shape mismatches between the batch and the outputs of
// the collaborators are programming errors and cause a
// panic.
func (l *LossAssembler) Compute(sid []int, segments anyvec.Vector) *Result {
	batch := len(sid)
	if batch == 0 {
		panic("cannot compute loss for an empty batch")
	}
	if segments.Len() != batch*l.Config.SegLen {
		panic(fmt.Sprintf("segments: expected %d rows of %d values but got %d values",
			batch, l.Config.SegLen, segments.Len()))
	}
	segRes := anydiff.NewConst(segments)

	steps := l.SampleSteps(batch)
	mean, std := l.Diffusion.Forward(segRes, steps)
	checkLen("diffusion mean", mean, segments.Len())
	base := l.noised(mean, std, batch)

	dropout := &GuidanceDropout{NullProb: l.Config.NullProb, Rand: l.Rand}
	nullMask := dropout.Mask(batch)
	spkEmbed := dropout.Apply(l.Speakers.Embed(sid), l.Speakers.NullEmbedding(),
		nullMask)

	denoised := l.Denoiser.Denoise(segRes, spkEmbed, steps)
	checkLen("denoised", denoised, segments.Len())
	noiseEstim := MeanCost(MAE{}, base, denoised, batch)

	logSNR, _ := l.Scheduler.Schedule()
	checkLen("log-SNR schedule", logSNR, l.Config.Steps+1)
	alphasBar := anydiff.Sigmoid(logSNR)
	scheduleLoss := BoundaryPrior(alphasBar)

	loss := anydiff.Sub(noiseEstim, scheduleLoss)

	return &Result{
		Loss:         loss,
		NoiseEstim:   noiseEstim,
		ScheduleLoss: scheduleLoss,
		Losses: map[string]float64{
			NoiseEstimKey:   scalarValue(noiseEstim),
			ScheduleLossKey: scalarValue(scheduleLoss),
		},
		Diagnostics: &Diagnostics{
			Base:      VectorFloats(base.Output()),
			Denoised:  VectorFloats(denoised.Output()),
			AlphasBar: VectorFloats(alphasBar.Output()),
			Steps:     steps,
			NullMask:  nullMask,
		},
	}
}

// SampleSteps draws n zero-based diffusion steps,
// uniformly from [0, l.Config.Steps).
func (l *LossAssembler) SampleSteps(n int) []int {
	if l.Config.Steps <= 0 {
		panic(fmt.Sprintf("step count must be positive, got %d", l.Config.Steps))
	}
	res := make([]int, n)
	for i := range res {
		if l.Rand == nil {
			res[i] = rand.Intn(l.Config.Steps)
		} else {
			res[i] = l.Rand.Intn(l.Config.Steps)
		}
	}
	return res
}

// noised computes mean + std*eps for standard normal eps.
// The std may have one value per row or one value per
// component.
func (l *LossAssembler) noised(mean, std anydiff.Res, batch int) anydiff.Res {
	c := mean.Output().Creator()
	eps := c.MakeVector(mean.Output().Len())
	anyvec.Rand(eps, anyvec.Normal, l.Rand)
	epsRes := anydiff.NewConst(eps)
	switch std.Output().Len() {
	case batch:
		return anydiff.Add(mean, ScaleRows(epsRes, std))
	case mean.Output().Len():
		return anydiff.Add(mean, anydiff.Mul(epsRes, std))
	default:
		panic(fmt.Sprintf("diffusion std: expected length %d or %d but got %d",
			batch, mean.Output().Len(), std.Output().Len()))
	}
}
