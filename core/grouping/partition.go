package grouping

import "github.com/jayquinn/interview-scheduler/core/model"

// Partition returns the group sizes for n members under bounds b. The last
// groups absorb the remainder. Sizes may exceed n when padding is required.
func Partition(n int, b model.Bounds) []int {
	if n <= 0 || b.Max <= 0 {
		return nil
	}
	lo := b.Min
	if lo <= 0 {
		lo = 1
	}
	g := (n + b.Max - 1) / b.Max
	total := n
	for {
		total = n
		if g*lo > total {
			total = g * lo
		}
		if total <= g*b.Max {
			break
		}
		g++
	}
	sizes := make([]int, g)
	base, rem := total/g, total%g
	for i := range sizes {
		sizes[i] = base
		if i >= g-rem {
			sizes[i]++
		}
	}
	return sizes
}
