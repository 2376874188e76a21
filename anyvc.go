// Package anyvc computes the training objective for a
// diffusion-based voice conversion model conditioned on
// speaker embeddings.
//
// A training step cuts fixed-length segments out of a
// batch of variable-length utterances (SegmentSampler),
// then builds a single differentiable loss from them
// (LossAssembler).
// The loss combines a noise-estimation term with a prior
// on the boundaries of a learnable noise schedule.
//
// Batches are packed row-major, following the anydiff
// conventions: a batch of B rows with L columns is a
// single vector of length B*L.
package anyvc

import "github.com/unixpickle/anydiff"

// A Diffusion is the forward noising kernel.
//
// Forward returns the mean and standard deviation of the
// noised signal for each row of segments at the given
// (zero-based) diffusion steps.
// The mean has the same length as segments.
// The standard deviation has either one entry per row or
// one entry per element of segments.
type Diffusion interface {
	Forward(segments anydiff.Res, steps []int) (mean, std anydiff.Res)
}

// A Denoiser predicts a noised reference from a batch of
// segments, normalized speaker embeddings, and diffusion
// steps.
// The prediction has the same length as segments.
type Denoiser interface {
	Denoise(segments, embedding anydiff.Res, steps []int) anydiff.Res
}

// A SpeakerTable maps speaker IDs to embeddings.
type SpeakerTable interface {
	// Embed looks up a packed batch of embeddings, one row
	// per speaker ID.
	Embed(sid []int) anydiff.Res

	// NullEmbedding returns the learned embedding that
	// stands in for "no speaker".
	NullEmbedding() anydiff.Res
}

// A Scheduler exposes the current noise schedule.
//
// The first result is the log-SNR at each of the 1+S
// points of the schedule, where S is the number of
// diffusion steps.
// Index 0 is the clean boundary.
// The second result is implementation-specific.
type Scheduler interface {
	Schedule() (logSNR, aux anydiff.Res)
}
