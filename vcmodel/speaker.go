package vcmodel

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var s SpeakerTable
	serializer.RegisterTypedDeserializer(s.SerializerType(), DeserializeSpeakerTable)
}

// SpeakerTable is a learned embedding per speaker, plus a
// learned null embedding.
type SpeakerTable struct {
	// Embeddings is a packed NumSpeakers x Dim matrix.
	Embeddings *anydiff.Var

	// Null has Dim components.
	Null *anydiff.Var
}

// NewSpeakerTable creates a randomized SpeakerTable.
func NewSpeakerTable(c anyvec.Creator, numSpeakers, dim int) *SpeakerTable {
	if numSpeakers <= 0 || dim <= 0 {
		panic("speaker count and dimension must be positive")
	}
	res := &SpeakerTable{
		Embeddings: anydiff.NewVar(c.MakeVector(numSpeakers * dim)),
		Null:       anydiff.NewVar(c.MakeVector(dim)),
	}
	scale := c.MakeNumeric(1 / math.Sqrt(float64(dim)))
	for _, v := range res.Parameters() {
		anyvec.Rand(v.Vector, anyvec.Normal, nil)
		v.Vector.Scale(scale)
	}
	return res
}

// DeserializeSpeakerTable deserializes a SpeakerTable.
func DeserializeSpeakerTable(d []byte) (*SpeakerTable, error) {
	var embeddings, null *anyvecsave.S
	if err := serializer.DeserializeAny(d, &embeddings, &null); err != nil {
		return nil, essentials.AddCtx("deserialize SpeakerTable", err)
	}
	dim := null.Vector.Len()
	if dim == 0 || embeddings.Vector.Len()%dim != 0 {
		return nil, fmt.Errorf("deserialize SpeakerTable: invalid matrix dimensions")
	}
	return &SpeakerTable{
		Embeddings: anydiff.NewVar(embeddings.Vector),
		Null:       anydiff.NewVar(null.Vector),
	}, nil
}

// Dim returns the embedding dimension.
func (s *SpeakerTable) Dim() int {
	return s.Null.Vector.Len()
}

// NumSpeakers returns the number of speakers in the table.
func (s *SpeakerTable) NumSpeakers() int {
	return s.Embeddings.Vector.Len() / s.Dim()
}

// Embed looks up the embeddings for a batch of speaker
// IDs.
// It panics if an ID is out of range.
func (s *SpeakerTable) Embed(sid []int) anydiff.Res {
	dim := s.Dim()
	rows := make([]anydiff.Res, len(sid))
	for i, id := range sid {
		if id < 0 || id >= s.NumSpeakers() {
			panic(fmt.Sprintf("speaker %d out of range [0, %d)", id, s.NumSpeakers()))
		}
		rows[i] = anydiff.Slice(s.Embeddings, id*dim, (id+1)*dim)
	}
	return anydiff.Concat(rows...)
}

// NullEmbedding returns the null embedding.
func (s *SpeakerTable) NullEmbedding() anydiff.Res {
	return s.Null
}

// Parameters returns the embedding table and the null
// embedding, in that order.
func (s *SpeakerTable) Parameters() []*anydiff.Var {
	return []*anydiff.Var{s.Embeddings, s.Null}
}

// SerializerType returns the unique ID used to serialize
// a SpeakerTable with the serializer package.
func (s *SpeakerTable) SerializerType() string {
	return "github.com/unixpickle/anyvc/vcmodel.SpeakerTable"
}

// Serialize serializes the SpeakerTable.
func (s *SpeakerTable) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		&anyvecsave.S{Vector: s.Embeddings.Vector},
		&anyvecsave.S{Vector: s.Null.Vector},
	)
}
