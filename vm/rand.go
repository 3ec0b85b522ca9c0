package vm

import (
	"math/rand"
	"sync"
)

// randSource is the backing generator for the "random int" ecall. It is
// seeded once at VM construction rather than per-call, matching the
// semantics of a single long-lived pseudo-random stream.
type randSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newRandSource() *randSource {
	return &randSource{rng: rand.New(rand.NewSource(1))}
}

func (r *randSource) Uint32() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Uint32()
}

// Seed reseeds the stream, so a caller inside the package can make a run
// reproducible.
func (r *randSource) Seed(seed int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng = rand.New(rand.NewSource(seed))
}
