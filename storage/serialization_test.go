package storage

import (
	"bytes"
	"testing"
	"time"

	"github.com/poiesic/reviewsearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.Len(t, data, 8)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestMarshalID_SortsNumerically(t *testing.T) {
	assert.Negative(t, bytes.Compare(MarshalID(9), MarshalID(10)))
	assert.Negative(t, bytes.Compare(MarshalID(255), MarshalID(256)))
}

func TestUnmarshalID_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"short data", []byte{1, 2, 3}},
		{"long data", make([]byte, 9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalID(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	chunk := &core.ReviewChunk{
		Id:         17,
		ReviewID:   "review_1",
		Text:       "The ramen broth was deep and smoky.",
		ChunkIndex: 2,
		Vector:     []float32{0.1, -0.2, 0.3},
		StarRating: 4,
		CreatedAt:  time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
	}

	data, err := MarshalChunk(chunk)
	require.NoError(t, err)

	decoded, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Equal(t, chunk.Id, decoded.Id)
	assert.Equal(t, chunk.ReviewID, decoded.ReviewID)
	assert.Equal(t, chunk.Text, decoded.Text)
	assert.Equal(t, chunk.ChunkIndex, decoded.ChunkIndex)
	assert.Equal(t, chunk.Vector, decoded.Vector)
	assert.Equal(t, chunk.StarRating, decoded.StarRating)
	assert.True(t, chunk.CreatedAt.Equal(decoded.CreatedAt))
}

func TestMarshalChunk_ZeroValues(t *testing.T) {
	data, err := MarshalChunk(&core.ReviewChunk{ReviewID: "r", Text: "ok", StarRating: 1})
	require.NoError(t, err)

	decoded, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Empty(t, decoded.Vector)
	assert.True(t, decoded.CreatedAt.IsZero())

	_, err = MarshalChunk(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalChunk_NegativeIndexSurvives(t *testing.T) {
	data, err := MarshalChunk(&core.ReviewChunk{ReviewID: "r", Text: "ok", ChunkIndex: -3, StarRating: 2})
	require.NoError(t, err)
	decoded, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Equal(t, -3, decoded.ChunkIndex)
}

func TestUnmarshalChunk_Invalid(t *testing.T) {
	valid, err := MarshalChunk(&core.ReviewChunk{
		Id:         3,
		ReviewID:   "r",
		Text:       "Crispy fries.",
		Vector:     []float32{1, 2},
		StarRating: 4,
		CreatedAt:  time.Now(),
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated varint", []byte{0xc1}},
		{"truncated record", valid[:len(valid)-3]},
		{"trailing bytes", append(bytes.Clone(valid), 0x00)},
		// id 1, empty review id, empty text, index 0, then a vector claiming 1000 floats
		{"vector longer than data", []byte{0x01, 0x00, 0x00, 0x00, 0xd0, 0x0f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalChunk(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}
