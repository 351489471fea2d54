package room

import (
	"math/rand/v2"
	"strings"
	"sync"
)

const (
	idAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultIDLength = 6
)

// IDGenerator produces candidate room ids. The registry retries on collision.
type IDGenerator interface {
	Generate() string
}

type randomIDs struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	length int
}

// NewRandomIDs returns a generator of upper-case alphanumeric ids
func NewRandomIDs(length int, src rand.Source) IDGenerator {
	if length <= 0 {
		length = DefaultIDLength
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &randomIDs{rnd: rand.New(src), length: length}
}

func (g *randomIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		b.WriteByte(idAlphabet[g.rnd.IntN(len(idAlphabet))])
	}
	return b.String()
}

// NormalizeID maps a client supplied id onto the registry's id space
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
