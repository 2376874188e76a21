package commands

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvc"
	"github.com/unixpickle/anyvc/vcmodel"
	"github.com/unixpickle/anyvc/vctrain"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"go.uber.org/zap"
)

type trainOptions struct {
	ConfigPath  string
	ModelPath   string
	MetricsAddr string

	Iters     int
	BatchSize int
	LR        float64
	Seed      int64
	LogEvery  int

	Speakers   int
	PerSpeaker int
	EmbedDim   int
	StepDim    int
	Hidden     int
}

var trainOpts trainOptions

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model on synthetic speakers",
	Long: `Train a model on synthetic per-speaker tones.

The model file is created if it does not exist, and is
saved when training finishes or is interrupted with ctrl+c.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runTrain(ctx, logger, &trainOpts)
	},
}

func init() {
	f := trainCmd.Flags()
	f.StringVar(&trainOpts.ConfigPath, "config", "", "YAML config file")
	f.StringVar(&trainOpts.ModelPath, "model", "vc.model", "model file")
	f.StringVar(&trainOpts.MetricsAddr, "metrics-addr", "", "address for the Prometheus endpoint")
	f.IntVar(&trainOpts.Iters, "iters", 1000, "number of training steps")
	f.IntVar(&trainOpts.BatchSize, "batch", 8, "batch size")
	f.Float64Var(&trainOpts.LR, "lr", 1e-3, "learning rate")
	f.Int64Var(&trainOpts.Seed, "seed", 0, "random seed (0 uses the clock)")
	f.IntVar(&trainOpts.LogEvery, "log-every", 10, "steps between log entries")
	f.IntVar(&trainOpts.Speakers, "speakers", 4, "number of synthetic speakers")
	f.IntVar(&trainOpts.PerSpeaker, "per-speaker", 16, "utterances per speaker")
	f.IntVar(&trainOpts.EmbedDim, "embed-dim", 32, "speaker embedding size")
	f.IntVar(&trainOpts.StepDim, "step-dim", 16, "step feature size")
	f.IntVar(&trainOpts.Hidden, "hidden", 256, "hidden layer size")
}

func runTrain(ctx context.Context, logger *zap.Logger, opts *trainOptions) error {
	logger = logger.With(zap.String("component", "train"))

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	model, err := loadOrCreateModel(logger, opts)
	if err != nil {
		return err
	}
	cfg := model.Config
	if model.Speakers.NumSpeakers() < opts.Speakers {
		return errors.New("train: model has fewer speakers than the dataset")
	}

	creator := anyvec32.CurrentCreator()
	samples := (&toneSet{
		Speakers:   opts.Speakers,
		PerSpeaker: opts.PerSpeaker,
		MinLen:     cfg.SegLen,
		MaxLen:     cfg.SegLen * 2,
		SampleRate: 16000,
	}).Generate(creator, rng)
	if opts.BatchSize <= 0 || opts.BatchSize > samples.Len() {
		return errors.New("train: batch size must be in [1, dataset size]")
	}

	assembler := model.Assembler()
	assembler.Rand = rng
	trainer := &vctrain.Trainer{
		Sampler:   &anyvc.SegmentSampler{SegLen: cfg.SegLen, Rand: rng},
		Assembler: assembler,
		Params:    model.Parameters(),
		Logger:    logger,
	}

	var metrics *vctrain.Metrics
	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = vctrain.NewMetrics(reg, "anyvc")
		server := &http.Server{
			Addr:    opts.MetricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer server.Close()
		logger.Info("serving metrics", zap.String("addr", opts.MetricsAddr))
	}

	logger.Info("training",
		zap.Int("samples", samples.Len()),
		zap.Int("seglen", cfg.SegLen),
		zap.Int("steps", cfg.Steps),
		zap.Float64("null_prob", cfg.NullProb),
		zap.Int64("seed", seed))

	done := make(chan struct{})
	var closeOnce sync.Once
	stop := func() {
		closeOnce.Do(func() { close(done) })
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	defer stop()

	// StatusFunc runs before every step, so by the time it
	// sees step n, steps [0, n) have been applied.
	var numSteps int
	if opts.Iters <= 0 || ctx.Err() != nil {
		stop()
	}
	sgd := &anysgd.SGD{
		Fetcher:     trainer,
		Gradienter:  trainer,
		Transformer: &anysgd.Adam{},
		Samples:     samples,
		Rater:       anysgd.ConstRater(opts.LR),
		StatusFunc: func(b anysgd.Batch) {
			if numSteps > 0 && numSteps <= opts.Iters {
				step := numSteps - 1
				if metrics != nil {
					metrics.Observe(trainer.LastResult)
				}
				if opts.LogEvery > 0 && step%opts.LogEvery == 0 {
					logStep(logger, step, trainer)
				}
			}
			if numSteps >= opts.Iters || ctx.Err() != nil {
				stop()
			}
			numSteps++
		},
		BatchSize: opts.BatchSize,
	}
	if err := sgd.Run(done); err != nil {
		return essentials.AddCtx("train", err)
	}
	if ctx.Err() != nil {
		logger.Info("interrupted", zap.Int("steps", numSteps))
	}

	if err := model.Save(opts.ModelPath); err != nil {
		return essentials.AddCtx("train", err)
	}
	logger.Info("saved model", zap.String("path", opts.ModelPath))
	return nil
}

func loadOrCreateModel(logger *zap.Logger, opts *trainOptions) (*vcmodel.Model, error) {
	if _, err := os.Stat(opts.ModelPath); err == nil {
		logger.Info("loading model", zap.String("path", opts.ModelPath))
		return vcmodel.LoadModel(opts.ModelPath)
	}

	cfg, err := anyvc.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger.Info("creating model")
	return vcmodel.NewModel(anyvec32.CurrentCreator(), &vcmodel.Config{
		Config:      *cfg,
		NumSpeakers: opts.Speakers,
		EmbedDim:    opts.EmbedDim,
		StepDim:     opts.StepDim,
		Hidden:      opts.Hidden,
	}), nil
}

func logStep(logger *zap.Logger, iter int, t *vctrain.Trainer) {
	fields := []zap.Field{
		zap.Int("iter", iter),
		zap.Float64("loss", t.LastCost),
	}
	for name, value := range t.LastResult.Losses {
		fields = append(fields, zap.Float64(name, value))
	}
	for name, stats := range t.LastResult.Diagnostics.Summary() {
		fields = append(fields,
			zap.Float64(name+".mean", stats.Mean),
			zap.Float64(name+".std", stats.StdDev))
	}
	logger.Info("step", fields...)
}
