package commands

import (
	"math"
	"math/rand"

	"github.com/unixpickle/anyvc/vctrain"
	"github.com/unixpickle/anyvec"
)

// toneSet generates utterances for a fixed set of speakers.
// Each speaker has its own fundamental frequency and
// harmonic profile.
type toneSet struct {
	Speakers   int
	PerSpeaker int

	// MinLen and MaxLen bound the valid length of each
	// utterance (inclusive).
	MinLen int
	MaxLen int

	// SampleRate is used to turn frequencies into phase
	// increments.
	SampleRate float64
}

func (t *toneSet) Generate(c anyvec.Creator, rng *rand.Rand) vctrain.SliceSampleList {
	var res vctrain.SliceSampleList
	for speaker := 0; speaker < t.Speakers; speaker++ {
		freq := 110 * math.Pow(2, float64(speaker)/float64(t.Speakers))
		for i := 0; i < t.PerSpeaker; i++ {
			length := t.MinLen + rng.Intn(t.MaxLen-t.MinLen+1)
			res = append(res, &vctrain.Sample{
				Speech:  c.MakeVectorData(c.MakeNumericList(t.utterance(rng, freq, length))),
				Length:  length,
				Speaker: speaker,
			})
		}
	}
	return res
}

func (t *toneSet) utterance(rng *rand.Rand, freq float64, length int) []float64 {
	// Padding past the valid length must never be sampled.
	data := make([]float64, t.MaxLen)
	phase := rng.Float64() * 2 * math.Pi
	step := 2 * math.Pi * freq / t.SampleRate
	gain := 0.3 + 0.4*rng.Float64()
	for i := 0; i < length; i++ {
		x := phase + step*float64(i)
		data[i] = gain * (math.Sin(x) + 0.5*math.Sin(2*x) + 0.25*math.Sin(3*x)) / 1.75
	}
	return data
}
