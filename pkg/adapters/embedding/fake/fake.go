package fake

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/finsight/finsight/pkg/adapters/embedding"
)

// Embedder is a deterministic hash-based embedder suitable for unit tests.
// It produces fixed-size vectors derived from SHA-256 of the input string.
type Embedder struct {
	dim  int
	name string
}

// New returns a new fake embedder with the given dimension (>= 4).
func New(dim int) *Embedder {
	if dim < 4 {
		dim = 4
	}
	return &Embedder{dim: dim, name: "fake"}
}

func (e *Embedder) Name() string { return e.name }

func (e *Embedder) Embed(ctx context.Context, inputs []string, opts map[string]any) ([]embedding.Vector, error) {
	// Fold opts keys into a seed, sorted, so output is stable regardless of
	// map iteration order.
	var optSeed uint64
	if len(opts) > 0 {
		keys := make([]string, 0, len(opts))
		for k := range opts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h := sha256.Sum256([]byte(k))
			optSeed ^= binary.LittleEndian.Uint64(h[:8])
		}
	}

	out := make([]embedding.Vector, len(inputs))
	for i, s := range inputs {
		vec := make(embedding.Vector, e.dim)
		h := sha256.Sum256([]byte(s))
		for j := 0; j < e.dim; j++ {
			off := (j * 4) % len(h)
			u := binary.LittleEndian.Uint32(h[off : off+4])
			u ^= uint32(optSeed)
			vec[j] = (float32(u&0x7FFFFFFF) / float32(1<<31)) - 0.5
		}
		out[i] = vec
	}
	return out, nil
}

// Factory constructs a fake embedder. Config key: dim.
func Factory(ctx context.Context, cfg map[string]any) (embedding.Embedder, error) { // nolint: revive
	_ = ctx
	dim := 16
	if v, ok := cfg["dim"].(int); ok && v > 0 {
		dim = v
	}
	return New(dim), nil
}

func init() {
	_ = embedding.Register("fake", Factory)
}
