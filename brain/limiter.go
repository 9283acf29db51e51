package brain

import (
	"errors"
	"fmt"
	"sync"
)

// ErrCallLimitExceeded is returned once a brain has used up its model calls.
var ErrCallLimitExceeded = errors.New("exceeded max model calls")

// Unlimited is reported by Budget.Remaining when no cap is set.
const Unlimited = -1

// Budget caps the model calls of one brain. A refused call is not counted.
type Budget struct {
	mu   sync.Mutex
	max  int
	used int
}

// NewBudget allows max model calls; zero means unlimited.
func NewBudget(max int) *Budget {
	return &Budget{max: max}
}

// Spend reserves one call and returns how many remain afterwards.
func (b *Budget) Spend() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max == 0 {
		b.used++
		return Unlimited, nil
	}
	if b.used >= b.max {
		return 0, fmt.Errorf("%w: %d", ErrCallLimitExceeded, b.max)
	}
	b.used++
	return b.max - b.used, nil
}

// Used returns the calls spent so far.
func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Remaining returns the calls left, or Unlimited.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max == 0 {
		return Unlimited
	}
	return b.max - b.used
}
