package vcmodel

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var s Schedule
	serializer.RegisterTypedDeserializer(s.SerializerType(), DeserializeSchedule)
}

// Schedule is a learnable noise schedule whose log-SNR
// falls linearly from Start (the clean boundary) to End
// (the last diffusion step).
type Schedule struct {
	Steps int

	// Start and End each store a single log-SNR value.
	Start *anydiff.Var
	End   *anydiff.Var
}

// NewSchedule creates a schedule with the given number of
// steps and initial endpoints.
func NewSchedule(c anyvec.Creator, steps int, start, end float64) *Schedule {
	if steps <= 0 {
		panic(fmt.Sprintf("step count must be positive, got %d", steps))
	}
	return &Schedule{
		Steps: steps,
		Start: anydiff.NewVar(c.MakeVectorData(c.MakeNumericList([]float64{start}))),
		End:   anydiff.NewVar(c.MakeVectorData(c.MakeNumericList([]float64{end}))),
	}
}

// DeserializeSchedule deserializes a Schedule.
func DeserializeSchedule(d []byte) (*Schedule, error) {
	var steps serializer.Int
	var start, end *anyvecsave.S
	if err := serializer.DeserializeAny(d, &steps, &start, &end); err != nil {
		return nil, essentials.AddCtx("deserialize Schedule", err)
	}
	if steps <= 0 || start.Vector.Len() != 1 || end.Vector.Len() != 1 {
		return nil, fmt.Errorf("deserialize Schedule: invalid shape")
	}
	return &Schedule{
		Steps: int(steps),
		Start: anydiff.NewVar(start.Vector),
		End:   anydiff.NewVar(end.Vector),
	}, nil
}

// Schedule returns the log-SNR at each of the 1+s.Steps
// schedule points, plus the constant position of each
// point in [0, 1].
func (s *Schedule) Schedule() (logSNR, positions anydiff.Res) {
	c := s.Start.Vector.Creator()
	n := s.Steps + 1
	pos := make([]float64, n)
	for i := range pos {
		pos[i] = float64(i) / float64(s.Steps)
	}
	posRes := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(pos)))
	zeros := anydiff.NewConst(c.MakeVector(n))
	delta := anydiff.AddRepeated(zeros, anydiff.Sub(s.End, s.Start))
	logSNR = anydiff.Add(
		anydiff.AddRepeated(zeros, s.Start),
		anydiff.Mul(delta, posRes),
	)
	return logSNR, posRes
}

// Parameters returns the endpoints of the schedule.
func (s *Schedule) Parameters() []*anydiff.Var {
	return []*anydiff.Var{s.Start, s.End}
}

// SerializerType returns the unique ID used to serialize
// a Schedule with the serializer package.
func (s *Schedule) SerializerType() string {
	return "github.com/unixpickle/anyvc/vcmodel.Schedule"
}

// Serialize serializes the Schedule.
func (s *Schedule) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(s.Steps),
		&anyvecsave.S{Vector: s.Start.Vector},
		&anyvecsave.S{Vector: s.End.Vector},
	)
}
