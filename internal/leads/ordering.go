package leads

import (
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"sort"
)

// Ordering picks which callable lead goes first.
type Ordering string

const (
	OrderFreshFirst     Ordering = "fresh_first"
	OrderCallbacksFirst Ordering = "callbacks_first"
	OrderAgedFirst      Ordering = "aged_first"
	OrderRandom         Ordering = "random"
)

var ErrUnknownOrdering = errors.New("unknown ordering policy")

func ParseOrdering(v string) (Ordering, error) {
	switch o := Ordering(v); o {
	case OrderFreshFirst, OrderCallbacksFirst, OrderAgedFirst, OrderRandom:
		return o, nil
	case "":
		return OrderFreshFirst, nil
	default:
		return "", ErrUnknownOrdering
	}
}

// creationLess is the tie-breaker shared by every policy.
func creationLess(a, b Lead) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Sort orders ls in place. seed makes the random policy repeatable for a
// given account and day.
func Sort(ls []Lead, o Ordering, seed string) {
	sort.SliceStable(ls, func(i, j int) bool { return creationLess(ls[i], ls[j]) })

	switch o {
	case OrderFreshFirst, "":
		sort.SliceStable(ls, func(i, j int) bool {
			return ls[i].TotalCallsMade < ls[j].TotalCallsMade
		})
	case OrderCallbacksFirst:
		sort.SliceStable(ls, func(i, j int) bool {
			return ls[i].Status == StatusCallbackLater && ls[j].Status != StatusCallbackLater
		})
	case OrderAgedFirst:
		// Never-attempted leads have an empty date and sort first.
		sort.SliceStable(ls, func(i, j int) bool {
			return ls[i].LastAttemptDate < ls[j].LastAttemptDate
		})
	case OrderRandom:
		h := fnv.New64a()
		_, _ = h.Write([]byte(seed))
		s := h.Sum64()
		rng := rand.New(rand.NewPCG(s, s>>1|1))
		rng.Shuffle(len(ls), func(i, j int) { ls[i], ls[j] = ls[j], ls[i] })
	}
}
