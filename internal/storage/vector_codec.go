package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// Embeddings are persisted as little-endian float32 blocks: four bytes per
// component, no framing. Single precision halves storage versus float64 and
// decodes without text parsing. Older deployments stored embeddings as JSON
// arrays of decimal text; decodeEmbedding keeps those readable.

func encodeEmbedding(vec []float32) []byte {
	blob := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func decodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	// Legacy rows hold a JSON array of numbers
	if blob[0] == '[' {
		var vec []float32
		if err := json.Unmarshal(blob, &vec); err != nil {
			return nil, fmt.Errorf("decode legacy embedding: %w", err)
		}
		return vec, nil
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
