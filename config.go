package anyvc

import (
	"fmt"
	"os"
	"strconv"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to the names of environment
// variables that override configuration files.
const EnvPrefix = "ANYVC_"

const (
	defaultSegLen   = 16384
	defaultSteps    = 64
	defaultNullProb = 0.2
)

func init() {
	var c Config
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeConfig)
}

// Config stores the hyper-parameters of the training
// objective.
type Config struct {
	// SegLen is the number of samples in each segment.
	SegLen int `yaml:"seglen"`

	// Steps is the number of diffusion steps.
	Steps int `yaml:"steps"`

	// NullProb is the probability of replacing a speaker
	// embedding with the null embedding.
	NullProb float64 `yaml:"null_prob"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SegLen:   defaultSegLen,
		Steps:    defaultSteps,
		NullProb: defaultNullProb,
	}
}

// LoadConfig reads a YAML configuration file.
//
// Missing fields take their default values, and any
// ANYVC_SEGLEN, ANYVC_STEPS, or ANYVC_NULL_PROB
// environment variables override the file.
// If path is empty, only the defaults and environment are
// used.
func LoadConfig(path string) (*Config, error) {
	res := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, essentials.AddCtx("load config", err)
		}
		if err := yaml.Unmarshal(data, res); err != nil {
			return nil, essentials.AddCtx("load config", err)
		}
	}
	if err := res.applyEnv(os.LookupEnv); err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	if err := res.Validate(); err != nil {
		return nil, essentials.AddCtx("load config", err)
	}
	return res, nil
}

// Validate checks that every field is in range.
func (c *Config) Validate() error {
	if c.SegLen <= 0 {
		return fmt.Errorf("seglen must be positive, got %d", c.SegLen)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", c.Steps)
	}
	if c.NullProb < 0 || c.NullProb > 1 {
		return fmt.Errorf("null_prob must be in [0, 1], got %f", c.NullProb)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if s, ok := lookup(EnvPrefix + "SEGLEN"); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return essentials.AddCtx(EnvPrefix+"SEGLEN", err)
		}
		c.SegLen = n
	}
	if s, ok := lookup(EnvPrefix + "STEPS"); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return essentials.AddCtx(EnvPrefix+"STEPS", err)
		}
		c.Steps = n
	}
	if s, ok := lookup(EnvPrefix + "NULL_PROB"); ok {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return essentials.AddCtx(EnvPrefix+"NULL_PROB", err)
		}
		c.NullProb = p
	}
	return nil
}

// DeserializeConfig deserializes a Config.
func DeserializeConfig(d []byte) (*Config, error) {
	var segLen, steps serializer.Int
	var nullProb serializer.Float64
	if err := serializer.DeserializeAny(d, &segLen, &steps, &nullProb); err != nil {
		return nil, essentials.AddCtx("deserialize Config", err)
	}
	res := &Config{
		SegLen:   int(segLen),
		Steps:    int(steps),
		NullProb: float64(nullProb),
	}
	if err := res.Validate(); err != nil {
		return nil, essentials.AddCtx("deserialize Config", err)
	}
	return res, nil
}

// SerializerType returns the unique ID used to serialize
// a Config with the serializer package.
func (c *Config) SerializerType() string {
	return "github.com/unixpickle/anyvc.Config"
}

// Serialize serializes the Config.
func (c *Config) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(c.SegLen),
		serializer.Int(c.Steps),
		serializer.Float64(c.NullProb),
	)
}
