package vcmodel

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var d Denoiser
	serializer.RegisterTypedDeserializer(d.SerializerType(), DeserializeDenoiser)
}

// Denoiser is a feed-forward denoiser conditioned on a
// speaker embedding and sinusoidal step features.
//
// For each row, the network input is the segment, then
// the embedding, then the step features.
type Denoiser struct {
	SegLen   int
	EmbedDim int
	StepDim  int

	Net anynet.Net
}

// NewDenoiser creates a randomized Denoiser with one
// hidden layer.
// The step feature dimension must be even.
func NewDenoiser(c anyvec.Creator, segLen, embedDim, stepDim, hidden int) *Denoiser {
	if stepDim%2 != 0 {
		panic("step feature dimension must be even")
	}
	inCount := segLen + embedDim + stepDim
	return &Denoiser{
		SegLen:   segLen,
		EmbedDim: embedDim,
		StepDim:  stepDim,
		Net: anynet.Net{
			anynet.NewFC(c, inCount, hidden),
			anynet.Tanh,
			anynet.NewFC(c, hidden, segLen),
		},
	}
}

// DeserializeDenoiser deserializes a Denoiser.
func DeserializeDenoiser(d []byte) (*Denoiser, error) {
	var segLen, embedDim, stepDim serializer.Int
	var net anynet.Net
	err := serializer.DeserializeAny(d, &segLen, &embedDim, &stepDim, &net)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Denoiser", err)
	}
	return &Denoiser{
		SegLen:   int(segLen),
		EmbedDim: int(embedDim),
		StepDim:  int(stepDim),
		Net:      net,
	}, nil
}

// Denoise applies the network to a batch.
func (d *Denoiser) Denoise(segments, embedding anydiff.Res, steps []int) anydiff.Res {
	n := len(steps)
	if segments.Output().Len() != n*d.SegLen {
		panic(fmt.Sprintf("segments: expected length %d but got %d", n*d.SegLen,
			segments.Output().Len()))
	}
	if embedding.Output().Len() != n*d.EmbedDim {
		panic(fmt.Sprintf("embedding: expected length %d but got %d", n*d.EmbedDim,
			embedding.Output().Len()))
	}
	c := segments.Output().Creator()
	features := anydiff.NewConst(d.stepFeatures(c, steps))
	cond := anynet.ConcatMixer{}.Mix(embedding, features, n)
	return d.Net.Apply(anynet.ConcatMixer{}.Mix(segments, cond, n), n)
}

// Parameters returns the parameters of the network.
func (d *Denoiser) Parameters() []*anydiff.Var {
	return d.Net.Parameters()
}

// SerializerType returns the unique ID used to serialize
// a Denoiser with the serializer package.
func (d *Denoiser) SerializerType() string {
	return "github.com/unixpickle/anyvc/vcmodel.Denoiser"
}

// Serialize serializes the Denoiser.
func (d *Denoiser) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(d.SegLen),
		serializer.Int(d.EmbedDim),
		serializer.Int(d.StepDim),
		d.Net,
	)
}

func (d *Denoiser) stepFeatures(c anyvec.Creator, steps []int) anyvec.Vector {
	half := d.StepDim / 2
	res := make([]float64, 0, len(steps)*d.StepDim)
	for _, step := range steps {
		for i := 0; i < half; i++ {
			freq := math.Exp(-math.Log(10000) * float64(i) / float64(half))
			res = append(res, math.Sin(float64(step)*freq))
		}
		for i := 0; i < half; i++ {
			freq := math.Exp(-math.Log(10000) * float64(i) / float64(half))
			res = append(res, math.Cos(float64(step)*freq))
		}
	}
	return c.MakeVectorData(c.MakeNumericList(res))
}
