package commands

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anyvc/vcmodel"
	"github.com/unixpickle/anyvec/anyvec64"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToneSet(t *testing.T) {
	set := &toneSet{
		Speakers:   3,
		PerSpeaker: 5,
		MinLen:     20,
		MaxLen:     40,
		SampleRate: 16000,
	}
	samples := set.Generate(anyvec64.CurrentCreator(), rand.New(rand.NewSource(1)))
	require.Equal(t, 15, samples.Len())
	for i, s := range samples {
		assert.Equal(t, i/5, s.Speaker)
		assert.GreaterOrEqual(t, s.Length, 20)
		assert.LessOrEqual(t, s.Length, 40)
		assert.Equal(t, 40, s.Speech.Len())
		data := s.Speech.Data().([]float64)
		for _, x := range data[s.Length:] {
			assert.Equal(t, 0.0, x)
		}
		for _, x := range data[:s.Length] {
			assert.LessOrEqual(t, x, 1.0)
			assert.GreaterOrEqual(t, x, -1.0)
		}
	}
}

func TestRunTrain(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(configPath,
		[]byte("seglen: 24\nsteps: 8\nnull_prob: 0.25\n"), 0644))

	opts := &trainOptions{
		ConfigPath: configPath,
		ModelPath:  filepath.Join(dir, "out.model"),
		Iters:      5,
		BatchSize:  3,
		LR:         1e-3,
		Seed:       1,
		LogEvery:   2,
		Speakers:   2,
		PerSpeaker: 3,
		EmbedDim:   4,
		StepDim:    4,
		Hidden:     8,
	}
	require.NoError(t, runTrain(context.Background(), zap.NewNop(), opts))

	model, err := vcmodel.LoadModel(opts.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, 24, model.Config.SegLen)
	assert.Equal(t, 8, model.Config.Steps)
	assert.Equal(t, 0.25, model.Config.NullProb)
	assert.Equal(t, 2, model.Speakers.NumSpeakers())

	// A second run resumes from the saved model.
	opts.ConfigPath = ""
	opts.Iters = 1
	require.NoError(t, runTrain(context.Background(), zap.NewNop(), opts))
}

func TestRunTrainCanceled(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("seglen: 16\nsteps: 4\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := &trainOptions{
		ConfigPath: configPath,
		ModelPath:  filepath.Join(dir, "out.model"),
		Iters:      1000,
		BatchSize:  2,
		LR:         1e-3,
		Seed:       2,
		Speakers:   2,
		PerSpeaker: 2,
		EmbedDim:   4,
		StepDim:    4,
		Hidden:     8,
	}
	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, runTrain(ctx, zap.New(core), opts))
	_, err := os.Stat(opts.ModelPath)
	assert.NoError(t, err)
	assert.LessOrEqual(t, logs.FilterMessage("step").Len(), 1)
	assert.Equal(t, 1, logs.FilterMessage("interrupted").Len())
}

func TestRunTrainStepLimit(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("seglen: 16\nsteps: 4\n"), 0644))
	opts := &trainOptions{
		ConfigPath: configPath,
		ModelPath:  filepath.Join(dir, "out.model"),
		Iters:      4,
		BatchSize:  3,
		LR:         1e-3,
		Seed:       4,
		LogEvery:   1,
		Speakers:   2,
		PerSpeaker: 2,
		EmbedDim:   4,
		StepDim:    4,
		Hidden:     8,
	}
	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, runTrain(context.Background(), zap.New(core), opts))

	steps := logs.FilterMessage("step").All()
	require.Len(t, steps, 4)
	for i, entry := range steps {
		assert.Equal(t, int64(i), entry.ContextMap()["iter"])
	}
	assert.Equal(t, 0, logs.FilterMessage("interrupted").Len())
}

func TestRunTrainEnvConfig(t *testing.T) {
	t.Setenv("ANYVC_SEGLEN", "20")
	t.Setenv("ANYVC_STEPS", "5")
	t.Setenv("ANYVC_NULL_PROB", "0.5")
	dir := t.TempDir()
	opts := &trainOptions{
		ModelPath:  filepath.Join(dir, "out.model"),
		Iters:      1,
		BatchSize:  2,
		LR:         1e-3,
		Seed:       5,
		Speakers:   2,
		PerSpeaker: 2,
		EmbedDim:   4,
		StepDim:    4,
		Hidden:     8,
	}
	require.NoError(t, runTrain(context.Background(), zap.NewNop(), opts))

	model, err := vcmodel.LoadModel(opts.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, 20, model.Config.SegLen)
	assert.Equal(t, 5, model.Config.Steps)
	assert.Equal(t, 0.5, model.Config.NullProb)
}

func TestRunTrainBadBatch(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("seglen: 16\nsteps: 4\n"), 0644))
	opts := &trainOptions{
		ConfigPath: configPath,
		ModelPath:  filepath.Join(dir, "out.model"),
		Iters:      1,
		BatchSize:  10,
		Seed:       3,
		Speakers:   1,
		PerSpeaker: 2,
		EmbedDim:   4,
		StepDim:    4,
		Hidden:     8,
	}
	assert.Error(t, runTrain(context.Background(), zap.NewNop(), opts))
}
