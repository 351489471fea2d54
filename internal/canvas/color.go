package canvas

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Number of random draws tried before a colliding color is accepted
const DefaultColorAttempts = 100

// ColorSet tracks the colors held by a room's current members. Colors are
// reference counted: a tolerated collision must not free a color that another
// member still holds.
type ColorSet struct {
	held map[string]int
}

func NewColorSet() *ColorSet {
	return &ColorSet{held: make(map[string]int)}
}

func (s *ColorSet) Contains(color string) bool {
	return s.held[color] > 0
}

func (s *ColorSet) add(color string) {
	s.held[color]++
}

// Release gives back one hold on color
func (s *ColorSet) Release(color string) {
	n, ok := s.held[color]
	if !ok {
		return
	}
	if n <= 1 {
		delete(s.held, color)
		return
	}
	s.held[color] = n - 1
}

func (s *ColorSet) Len() int {
	return len(s.held)
}

// ColorAllocator hands out random #RRGGBB colors that are not yet held in a
// room. It is safe for concurrent use and is shared by every room.
type ColorAllocator struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	attempts int
}

func NewColorAllocator(attempts int, src rand.Source) *ColorAllocator {
	if attempts <= 0 {
		attempts = DefaultColorAttempts
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &ColorAllocator{rnd: rand.New(src), attempts: attempts}
}

// Allocate picks a color absent from set and records it there. Once the
// attempt budget is spent a fresh random color is accepted even if it collides.
func (a *ColorAllocator) Allocate(set *ColorSet) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i < a.attempts; i++ {
		color := a.random()
		if !set.Contains(color) {
			set.add(color)
			return color
		}
	}

	color := a.random()
	set.add(color)
	return color
}

func (a *ColorAllocator) random() string {
	return fmt.Sprintf("#%06X", a.rnd.IntN(1<<24))
}
