package anyvc

import (
	"fmt"
	"math/rand"

	"github.com/unixpickle/anyvec"
)

// A SegmentSampler cuts a fixed-length window out of each
// utterance in a batch, at a random offset.
type SegmentSampler struct {
	SegLen int

	// Rand is the source of offsets.
	// If nil, the math/rand global source is used.
	Rand *rand.Rand
}

// Sample extracts one segment per utterance and packs the
// segments into a vector of len(speeches)*s.SegLen values.
//
// Only the first lengths[i] values of speeches[i] are
// considered valid audio.
// Every length must be at least s.SegLen; violating this
// is a configuration error and causes a panic.
func (s *SegmentSampler) Sample(speeches []anyvec.Vector, lengths []int) anyvec.Vector {
	if len(speeches) != len(lengths) {
		panic(fmt.Sprintf("got %d utterances but %d lengths", len(speeches),
			len(lengths)))
	}
	for i, speech := range speeches {
		if lengths[i] > speech.Len() {
			panic(fmt.Sprintf("utterance %d: length %d exceeds buffer size %d", i,
				lengths[i], speech.Len()))
		}
	}
	return s.Extract(speeches, s.SampleStarts(lengths))
}

// SampleStarts draws an offset for each length, uniformly
// from the range [0, lengths[i]-s.SegLen].
func (s *SegmentSampler) SampleStarts(lengths []int) []int {
	if s.SegLen <= 0 {
		panic(fmt.Sprintf("segment length must be positive, got %d", s.SegLen))
	}
	res := make([]int, len(lengths))
	for i, length := range lengths {
		if length < s.SegLen {
			panic(fmt.Sprintf("utterance %d: length %d is shorter than segment length %d",
				i, length, s.SegLen))
		}
		res[i] = s.intn(length - s.SegLen + 1)
	}
	return res
}

// Extract packs the segments of length s.SegLen starting
// at the given offsets.
func (s *SegmentSampler) Extract(speeches []anyvec.Vector, starts []int) anyvec.Vector {
	if len(speeches) == 0 {
		panic("cannot segment an empty batch")
	}
	if len(speeches) != len(starts) {
		panic(fmt.Sprintf("got %d utterances but %d offsets", len(speeches),
			len(starts)))
	}
	segs := make([]anyvec.Vector, len(speeches))
	for i, speech := range speeches {
		start := starts[i]
		if start < 0 || start+s.SegLen > speech.Len() {
			panic(fmt.Sprintf("utterance %d: segment [%d, %d) out of bounds (length %d)",
				i, start, start+s.SegLen, speech.Len()))
		}
		segs[i] = speech.Slice(start, start+s.SegLen)
	}
	return speeches[0].Creator().Concat(segs...)
}

func (s *SegmentSampler) intn(n int) int {
	if s.Rand == nil {
		return rand.Intn(n)
	}
	return s.Rand.Intn(n)
}
