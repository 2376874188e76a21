// Package vcmodel implements small, trainable versions of
// the models consumed by anyvc: a learnable noise
// schedule, a forward diffusion kernel, a speaker
// embedding table, and a conditioned denoiser.
package vcmodel

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvc"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const (
	defaultStartLogSNR = 6
	defaultEndLogSNR   = -6
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
}

// Config describes the architecture of a Model.
type Config struct {
	anyvc.Config

	NumSpeakers int
	EmbedDim    int
	StepDim     int
	Hidden      int
}

// Model bundles the collaborators of an
// anyvc.LossAssembler.
type Model struct {
	Config   *anyvc.Config
	Schedule *Schedule
	Speakers *SpeakerTable
	Denoiser *Denoiser
}

// NewModel creates a randomly initialized Model.
func NewModel(c anyvec.Creator, cfg *Config) *Model {
	return &Model{
		Config:   &cfg.Config,
		Schedule: NewSchedule(c, cfg.Steps, defaultStartLogSNR, defaultEndLogSNR),
		Speakers: NewSpeakerTable(c, cfg.NumSpeakers, cfg.EmbedDim),
		Denoiser: NewDenoiser(c, cfg.SegLen, cfg.EmbedDim, cfg.StepDim, cfg.Hidden),
	}
}

// DeserializeModel deserializes a Model.
func DeserializeModel(d []byte) (*Model, error) {
	var res Model
	err := serializer.DeserializeAny(d, &res.Config, &res.Schedule, &res.Speakers,
		&res.Denoiser)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	return &res, nil
}

// LoadModel reads a Model saved with Save.
func LoadModel(path string) (*Model, error) {
	var res *Model
	if err := serializer.LoadAny(path, &res); err != nil {
		return nil, essentials.AddCtx("load model", err)
	}
	return res, nil
}

// Save writes the model to a file.
func (m *Model) Save(path string) error {
	if err := serializer.SaveAny(path, m); err != nil {
		return essentials.AddCtx("save model", err)
	}
	return nil
}

// Diffusion returns the forward process for m.Schedule.
func (m *Model) Diffusion() *Diffusion {
	return &Diffusion{Schedule: m.Schedule}
}

// Assembler creates a loss assembler that uses the model
// as every collaborator.
func (m *Model) Assembler() *anyvc.LossAssembler {
	return &anyvc.LossAssembler{
		Config:    *m.Config,
		Diffusion: m.Diffusion(),
		Denoiser:  m.Denoiser,
		Speakers:  m.Speakers,
		Scheduler: m.Schedule,
	}
}

// Parameters returns the parameters of the schedule, the
// speaker table, and the denoiser, in that order.
func (m *Model) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	res = append(res, m.Schedule.Parameters()...)
	res = append(res, m.Speakers.Parameters()...)
	res = append(res, m.Denoiser.Parameters()...)
	return res
}

// SerializerType returns the unique ID used to serialize
// a Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/unixpickle/anyvc/vcmodel.Model"
}

// Serialize serializes the Model.
func (m *Model) Serialize() ([]byte, error) {
	return serializer.SerializeAny(m.Config, m.Schedule, m.Speakers, m.Denoiser)
}
