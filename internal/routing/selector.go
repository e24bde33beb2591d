package routing

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"outreach-dialer/pkg/phone"
)

// WeightedOrigin is a caller-id number the account owns.
type WeightedOrigin struct {
	Number string `json:"number"`
	// Weight must be > 0 to be eligible.
	Weight int `json:"weight"`
}

var ErrNoOrigin = errors.New("routing: no eligible origin number")

// Selector picks the origin number for an outbound attempt.
//
// Return the pick only. No side effects.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rng: rng}
}

// Pick normalizes the eligible origins to E.164 and draws one by weight.
// Unparseable numbers are skipped.
func (s *Selector) Pick(origins []WeightedOrigin, region string) (string, error) {
	eligible := make([]WeightedOrigin, 0, len(origins))
	var total int
	for _, o := range origins {
		if o.Weight <= 0 || strings.TrimSpace(o.Number) == "" {
			continue
		}
		n, err := phone.NormalizeE164(o.Number, region)
		if err != nil {
			continue
		}
		eligible = append(eligible, WeightedOrigin{Number: n, Weight: o.Weight})
		total += o.Weight
	}
	if total <= 0 {
		return "", ErrNoOrigin
	}

	// *rand.Rand is not safe for concurrent use.
	s.mu.Lock()
	r := s.rng.Intn(total) // 0..total-1
	s.mu.Unlock()

	var acc int
	for _, o := range eligible {
		acc += o.Weight
		if r < acc {
			return o.Number, nil
		}
	}
	return "", ErrNoOrigin
}
