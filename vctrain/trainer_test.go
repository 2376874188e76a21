package vctrain

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvc"
	"github.com/unixpickle/anyvc/vcmodel"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSegLen = 12

func testTrainer(t *testing.T) (*Trainer, *vcmodel.Model) {
	c := anyvec32.CurrentCreator()
	model := vcmodel.NewModel(c, &vcmodel.Config{
		Config:      anyvc.Config{SegLen: testSegLen, Steps: 10, NullProb: 0.3},
		NumSpeakers: 4,
		EmbedDim:    3,
		StepDim:     4,
		Hidden:      8,
	})
	rng := rand.New(rand.NewSource(1))
	assembler := model.Assembler()
	assembler.Rand = rng
	return &Trainer{
		Sampler:   &anyvc.SegmentSampler{SegLen: testSegLen, Rand: rng},
		Assembler: assembler,
		Params:    model.Parameters(),
		MaxGos:    2,
	}, model
}

func testSamples(n int) SliceSampleList {
	var res SliceSampleList
	for i := 0; i < n; i++ {
		length := testSegLen + i*3
		data := make([]float64, length+5)
		for j := range data {
			data[j] = math.Sin(float64(j) * float64(i+1) / 7)
		}
		c := anyvec32.CurrentCreator()
		res = append(res, &Sample{
			Speech:  c.MakeVectorData(c.MakeNumericList(data)),
			Length:  length,
			Speaker: i % 4,
		})
	}
	return res
}

func TestTrainerFetch(t *testing.T) {
	trainer, _ := testTrainer(t)
	samples := testSamples(6)
	batch, err := trainer.Fetch(samples)
	require.NoError(t, err)
	b := batch.(*Batch)
	assert.Equal(t, 6*testSegLen, b.Segments.Len())
	assert.Equal(t, []int{0, 1, 2, 3, 0, 1}, b.Speakers)

	_, err = trainer.Fetch(SliceSampleList{})
	assert.Error(t, err)
}

type failingSampleList struct {
	SliceSampleList
}

func (f failingSampleList) GetSample(idx int) (*Sample, error) {
	if idx == 2 {
		return nil, errors.New("corrupt sample")
	}
	return f.SliceSampleList.GetSample(idx)
}

func (f failingSampleList) Slice(i, j int) anysgd.SampleList {
	return failingSampleList{f.SliceSampleList.Slice(i, j).(SliceSampleList)}
}

func TestTrainerFetchError(t *testing.T) {
	trainer, _ := testTrainer(t)
	_, err := trainer.Fetch(failingSampleList{testSamples(4)})
	assert.Error(t, err)
}

func TestTrainerGradient(t *testing.T) {
	trainer, model := testTrainer(t)
	core, logs := observer.New(zapcore.DebugLevel)
	trainer.Logger = zap.New(core)

	batch, err := trainer.Fetch(testSamples(5))
	require.NoError(t, err)
	grad := trainer.Gradient(batch)

	require.NotNil(t, trainer.LastResult)
	losses := trainer.LastResult.Losses
	assert.InDelta(t, losses[anyvc.NoiseEstimKey]-losses[anyvc.ScheduleLossKey],
		trainer.LastCost, 1e-4)

	assert.Len(t, grad, len(model.Parameters()))
	var total float64
	for _, p := range model.Parameters() {
		total += anyvc.NumericFloat(anyvec.AbsMax(grad[p]))
	}
	assert.False(t, math.IsNaN(total))
	assert.NotEqual(t, 0.0, total)

	entries := logs.FilterMessage("computed gradient").All()
	require.Len(t, entries, 1)
	assert.Equal(t, trainer.LastCost, entries[0].ContextMap()["loss"])
}

func TestTrainerStep(t *testing.T) {
	trainer, model := testTrainer(t)
	batch, err := trainer.Fetch(testSamples(4))
	require.NoError(t, err)

	before := anyvc.VectorFloats(model.Schedule.Start.Vector)
	grad := trainer.Gradient(batch)
	c := model.Schedule.Start.Vector.Creator()
	grad.Scale(c.MakeNumeric(-0.1))
	grad.AddToVars()
	after := anyvc.VectorFloats(model.Schedule.Start.Vector)
	assert.NotEqual(t, before, after)
}
