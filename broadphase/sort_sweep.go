// Copyright © 2024 Galvanized Logic Inc.

package broadphase

import "sort"

// sort_sweep.go sweeps spheres along whichever axis they are currently
// most spread out on, using each sphere's lower bound to both order the
// pass and early-exit the inner scan.

// SortAndSweep keeps an owned ordered sequence of sphere references and
// the axis (0=x, 1=y, 2=z) the next Update should sweep along.
type SortAndSweep struct {
	objects []*Sphere
	axis    int
}

// NewSortAndSweep creates a SortAndSweep that starts sweeping the x axis.
func NewSortAndSweep() *SortAndSweep { return &SortAndSweep{} }

// AddObjects installs the given spheres.
func (bp *SortAndSweep) AddObjects(spheres []*Sphere) {
	bp.objects = append(bp.objects, spheres...)
}

// lower_bound returns a sphere's minimum extent along the given axis.
func lower_bound(s *Sphere, axis int) float64 { return s.Position.Get(axis) - s.Radius }

// Update sorts on the current axis, sweeps with an early-exit inner loop,
// then re-picks the axis of highest center variance for the next call.
func (bp *SortAndSweep) Update() {
	axis := bp.axis
	sort.Slice(bp.objects, func(i, j int) bool {
		return lower_bound(bp.objects[i], axis) < lower_bound(bp.objects[j], axis)
	})

	n := len(bp.objects)
	var sum, sum_sqr [3]float64
	for i := 0; i < n; i++ {
		a := bp.objects[i]
		a_upper := a.Position.Get(axis) + a.Radius
		for j := i + 1; j < n; j++ {
			b := bp.objects[j]
			if lower_bound(b, axis) > a_upper {
				break // critical early-exit: nothing further starts soon enough to reach a.
			}
			if overlaps(a, b) {
				flag(a, b)
			}
		}
		for ax := 0; ax < 3; ax++ {
			c := a.Position.Get(ax)
			sum[ax] += c
			sum_sqr[ax] += c * c
		}
	}

	if n == 0 {
		return
	}
	best_axis, best_variance := 0, -1.0
	for ax := 0; ax < 3; ax++ {
		mean := sum[ax] / float64(n)
		variance := sum_sqr[ax]/float64(n) - mean*mean
		if variance > best_variance {
			best_variance, best_axis = variance, ax
		}
	}
	bp.axis = best_axis
}

// Dispose clears every indexed sphere's back-pointers. SortAndSweep uses
// no cells either, but teardown stays uniform across all seven structures.
func (bp *SortAndSweep) Dispose() {
	for _, s := range bp.objects {
		s.reset()
	}
	bp.objects = nil
}
