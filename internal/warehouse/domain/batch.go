package domain

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// Batch size policy.
const (
	SmallBatch  = 1000
	MediumBatch = 2500
	LargeBatch  = 5000

	// MaxBatchSize caps a client-supplied batch size.
	MaxBatchSize = LargeBatch
)

// BatchSize picks the chunk size for an operation over total units.
func BatchSize(total int) int {
	switch {
	case total <= 1000:
		return SmallBatch
	case total <= 10000:
		return MediumBatch
	default:
		return LargeBatch
	}
}

// EffectiveBatchSize returns requested when it is positive, capped at
// MaxBatchSize, and the policy size for total otherwise.
func EffectiveBatchSize(requested, total int) int {
	if requested <= 0 {
		return BatchSize(total)
	}
	if requested > MaxBatchSize {
		return MaxBatchSize
	}
	return requested
}

// ErrInvalidToken is returned for tokens that do not decode.
var ErrInvalidToken = errors.New("invalid continuation token")

// ChunkToken is the continuation state of a chunked operation. It travels
// to the client and back; the server keeps nothing between chunks.
type ChunkToken struct {
	Offset int
	Total  int
}

// Encode returns the opaque URL-safe form of t.
func (t ChunkToken) Encode() string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(t.Offset))
	binary.BigEndian.PutUint64(buf[8:], uint64(t.Total))
	return base64.RawURLEncoding.EncodeToString(buf[:])
}

// DecodeChunkToken parses a token produced by Encode.
func DecodeChunkToken(s string) (ChunkToken, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != 16 {
		return ChunkToken{}, ErrInvalidToken
	}
	offset := binary.BigEndian.Uint64(raw[:8])
	total := binary.BigEndian.Uint64(raw[8:])
	if offset > math.MaxInt32 || total > math.MaxInt32 || offset > total {
		return ChunkToken{}, ErrInvalidToken
	}
	return ChunkToken{Offset: int(offset), Total: int(total)}, nil
}

// ChunkResult is what every chunk call reports back.
type ChunkResult struct {
	Success         bool    `json:"success"`
	Complete        bool    `json:"complete"`
	Progress        float64 `json:"progress"`
	Processed       int     `json:"processed"`
	TotalProcessed  int     `json:"total_processed"`
	Remaining       int     `json:"remaining"`
	Offset          int     `json:"offset"`
	Token           string  `json:"token"`
	DurationSeconds float64 `json:"duration_seconds"`
	ItemsPerSecond  float64 `json:"items_per_second"`
	Message         string  `json:"message"`
}

// NewChunkResult fills in the derived fields for a chunk that processed
// units and left the operation at offset out of total.
func NewChunkResult(processed, offset, total int, elapsed time.Duration) ChunkResult {
	if offset > total {
		offset = total
	}
	res := ChunkResult{
		Success:         true,
		Complete:        offset >= total,
		Progress:        Progress(offset, total),
		Processed:       processed,
		TotalProcessed:  offset,
		Remaining:       total - offset,
		Offset:          offset,
		Token:           ChunkToken{Offset: offset, Total: total}.Encode(),
		DurationSeconds: round2(elapsed.Seconds()),
	}
	if secs := elapsed.Seconds(); secs > 0 {
		res.ItemsPerSecond = round2(float64(processed) / secs)
	}
	return res
}

// Progress returns done/total as a percentage rounded to one decimal.
// An empty operation is 100% done.
func Progress(done, total int) float64 {
	if total <= 0 {
		return 100
	}
	if done >= total {
		return 100
	}
	return math.Round(float64(done)*1000/float64(total)) / 10
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
