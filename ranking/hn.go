package ranking

import (
	"math"
	"sort"
	"time"
)

// Parameters used to rank polls by hotness.
const (
	Gravity         = 1.8
	TimebaseInHours = 2
)

type Rankable interface {
	GetScore() int64
	Age() time.Time
}

// Rank computes a score decaying with the age of the item, in the manner of Hacker News.
func Rank(item Rankable, gravity float64, timebaseInHours int64, referenceTime time.Time) float64 {
	hours := referenceTime.Sub(item.Age()).Hours()
	s := item.GetScore()

	return float64(s-1) / math.Pow((float64(timebaseInHours)+hours), gravity)
}

// Sort orders items from the hottest to the coldest, using the default parameters. Items ranking
// equally keep their relative order.
func Sort[T Rankable](items []T, referenceTime time.Time) {
	ranks := make(map[int]float64, len(items))
	idx := make([]int, len(items))
	for i, item := range items {
		idx[i] = i
		ranks[i] = Rank(item, Gravity, TimebaseInHours, referenceTime)
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return ranks[idx[a]] > ranks[idx[b]]
	})

	sorted := make([]T, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
}
