// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/reviewsearch/core"
)

// chunkRecord is the stored form of a ReviewChunk.
type chunkRecord struct {
	ID         uint64
	ReviewID   string
	Text       string
	ChunkIndex int
	Vector     []float32
	StarRating int
	CreatedAt  int64 // unix nanoseconds, 0 for the zero time
}

// chunkRecordMUS encodes fields in declaration order: varint integers,
// length-prefixed strings and a length-prefixed run of raw float32s.
type chunkRecordMUS struct{}

var chunkRecordSer mus.Serializer[chunkRecord] = chunkRecordMUS{}

func (chunkRecordMUS) Marshal(r chunkRecord, bs []byte) (n int) {
	n = varint.Uint64.Marshal(r.ID, bs)
	n += ord.String.Marshal(r.ReviewID, bs[n:])
	n += ord.String.Marshal(r.Text, bs[n:])
	n += varint.Int.Marshal(r.ChunkIndex, bs[n:])
	n += varint.Int.Marshal(len(r.Vector), bs[n:])
	for _, f := range r.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += varint.Int.Marshal(r.StarRating, bs[n:])
	return n + varint.Int64.Marshal(r.CreatedAt, bs[n:])
}

func (chunkRecordMUS) Unmarshal(bs []byte) (r chunkRecord, n int, err error) {
	r.ID, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	r.ReviewID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.ChunkIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var length int
	length, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length < 0 || length > (len(bs)-n)/4 {
		err = fmt.Errorf("vector length %d exceeds the remaining %d bytes", length, len(bs)-n)
		return
	}
	if length > 0 {
		r.Vector = make([]float32, length)
		for i := range r.Vector {
			r.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}
	r.StarRating, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.CreatedAt, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	return
}

func (chunkRecordMUS) Size(r chunkRecord) (size int) {
	size = varint.Uint64.Size(r.ID)
	size += ord.String.Size(r.ReviewID)
	size += ord.String.Size(r.Text)
	size += varint.Int.Size(r.ChunkIndex)
	size += varint.Int.Size(len(r.Vector))
	for _, f := range r.Vector {
		size += raw.Float32.Size(f)
	}
	size += varint.Int.Size(r.StarRating)
	return size + varint.Int64.Size(r.CreatedAt)
}

func (s chunkRecordMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// MarshalID serializes an ID to 8 big-endian bytes. IDs are used inside
// badger keys, so the encoding is fixed width to keep byte order equal to
// numeric order; varint would not.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: id needs 8 bytes, got %d", ErrSerializationFailed, len(data))
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}

// MarshalChunk serializes a ReviewChunk to bytes.
func MarshalChunk(chunk *core.ReviewChunk) ([]byte, error) {
	if chunk == nil {
		return nil, fmt.Errorf("%w: chunk is nil", ErrSerializationFailed)
	}
	record := chunkRecord{
		ID:         uint64(chunk.Id),
		ReviewID:   chunk.ReviewID,
		Text:       chunk.Text,
		ChunkIndex: chunk.ChunkIndex,
		Vector:     chunk.Vector,
		StarRating: chunk.StarRating,
	}
	if !chunk.CreatedAt.IsZero() {
		record.CreatedAt = chunk.CreatedAt.UnixNano()
	}
	data := make([]byte, chunkRecordSer.Size(record))
	chunkRecordSer.Marshal(record, data)
	return data, nil
}

// UnmarshalChunk deserializes a ReviewChunk from bytes. Trailing bytes are an error.
func UnmarshalChunk(data []byte) (*core.ReviewChunk, error) {
	record, n, err := chunkRecordSer.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(data)-n)
	}
	chunk := &core.ReviewChunk{
		Id:         core.ID(record.ID),
		ReviewID:   record.ReviewID,
		Text:       record.Text,
		ChunkIndex: record.ChunkIndex,
		Vector:     record.Vector,
		StarRating: record.StarRating,
	}
	if record.CreatedAt != 0 {
		chunk.CreatedAt = time.Unix(0, record.CreatedAt).UTC()
	}
	return chunk, nil
}
