package index

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// similarity computes cosine similarity shifted into [0, 1]: 1 is identical
// direction, 0.5 orthogonal, 0 opposite. Mismatched or zero vectors score 0.
func similarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}

// topK sorts results by score descending and truncates to k.
func topK(results []SearchResult, k int) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// encodeVector packs a float32 slice as little-endian bytes for BLOB storage.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 0, len(v)*4)
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian float32 BLOB.
func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, eris.Errorf("index: vector blob length %d not a multiple of 4", len(data))
	}
	v := make([]float32, len(data)/4)
	r := bytes.NewReader(data)
	for i := range v {
		var bits uint32
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return nil, eris.Wrap(err, "index: decode vector")
		}
		v[i] = math.Float32frombits(bits)
	}
	return v, nil
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
