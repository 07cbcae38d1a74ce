// Copyright © 2024 Galvanized Logic Inc.

package broadphase

import (
	"math"

	"github.com/gazed/broadphase/math/lin"
)

// hierarchical_grid.go generalizes UniformGrid to L geometric levels so
// an object is hashed into the smallest cell size that comfortably
// contains it, rather than forcing every object through one cell size
// that either wastes space or forces straddling.

// HierarchicalGrid shares one bucket table across all levels; a 4th
// prime folds the level index into the hash so buckets at different
// levels rarely alias.
type HierarchicalGrid struct {
	objects           []*Sphere
	buckets           []grid_cell
	level_sizes       []float64
	level_counts      []int
	frame_count       int64
	strategy          HashStrategy
	object_cell_ratio float64
	cell_growth       float64
	epsilon           float64
}

// NewHierarchicalGrid creates a hierarchical grid with the given bucket
// count (defaults to 1024 when count <= 0), hashing cell coordinates with
// the reference large-prime formula and DefaultConfig's level-sizing
// tunables. Levels are derived in AddObjects from the installed
// population's diameter range.
func NewHierarchicalGrid(bucket_count int) *HierarchicalGrid {
	return NewHierarchicalGridConfig(DefaultConfig(), bucket_count, HashPrime)
}

// NewHierarchicalGridStrategy is NewHierarchicalGrid with an explicit
// hash strategy.
func NewHierarchicalGridStrategy(bucket_count int, strategy HashStrategy) *HierarchicalGrid {
	return NewHierarchicalGridConfig(DefaultConfig(), bucket_count, strategy)
}

// NewHierarchicalGridConfig is NewHierarchicalGridStrategy with cfg's
// ObjectCellRatio, CellGrowth and Epsilon retuning level sizing and
// neighbor-search inflation in place of the package defaults, and
// cfg.BucketCount used whenever bucket_count <= 0.
func NewHierarchicalGridConfig(cfg Config, bucket_count int, strategy HashStrategy) *HierarchicalGrid {
	if bucket_count <= 0 {
		bucket_count = cfg.BucketCount
	}
	return &HierarchicalGrid{
		buckets:           make_grid_cells(bucket_count),
		strategy:          strategy,
		object_cell_ratio: cfg.ObjectCellRatio,
		cell_growth:       cfg.CellGrowth,
		epsilon:           cfg.Epsilon,
	}
}

// AddObjects installs spheres, derives the level ladder from the
// smallest and largest diameters seen, assigns each sphere its level,
// then inserts it into its hashed bucket.
func (g *HierarchicalGrid) AddObjects(spheres []*Sphere) {
	g.objects = append(g.objects, spheres...)

	d_min, d_max := math.Inf(1), 0.0
	for _, s := range g.objects {
		d := 2 * s.Radius
		if d < d_min {
			d_min = d
		}
		if d > d_max {
			d_max = d
		}
	}
	if d_min == math.Inf(1) {
		d_min, d_max = 1, 1
	}

	level0 := d_min * g.object_cell_ratio
	sizes := []float64{level0}
	for sizes[len(sizes)-1] < d_max*g.object_cell_ratio {
		sizes = append(sizes, sizes[len(sizes)-1]*g.cell_growth)
	}
	g.level_sizes = sizes
	g.level_counts = make([]int, len(sizes))

	for i, s := range g.objects {
		idx := int32(i)
		level := g.level_for_diameter(2 * s.Radius)
		s.level = int32(level)
		grid_insert(g.objects, g.buckets, idx, g.hash(s.Position, level))
		g.level_counts[level]++
	}
}

// level_for_diameter returns the lowest level L whose cell size, divided
// by the object-cell ratio, still comfortably fits a sphere of diameter d.
func (g *HierarchicalGrid) level_for_diameter(d float64) int {
	for l, size := range g.level_sizes {
		if size/g.object_cell_ratio >= d {
			return l
		}
	}
	return len(g.level_sizes) - 1
}

func (g *HierarchicalGrid) hash(pos lin.V3, level int) int {
	size := g.level_sizes[level]
	x := int64(math.Floor(pos.X / size))
	y := int64(math.Floor(pos.Y / size))
	z := int64(math.Floor(pos.Z / size))
	return g.hash_coords(x, y, z, level)
}

func (g *HierarchicalGrid) hash_coords(x, y, z int64, level int) int {
	n := int64(len(g.buckets))
	if g.strategy == HashSeaHash {
		return seahash_coords(x, y, z, int64(level), n)
	}
	h := (p1*x + p2*y + p3*z + p4*int64(level)) % n
	if h < 0 {
		h += n
	}
	return int(h)
}

// Update re-hashes every sphere within its fixed level, tests it against
// its own bucket, then walks every level with a nonzero object count
// looking for neighbor buckets, deduping via the shared frame stamp.
func (g *HierarchicalGrid) Update() {
	for i := range g.objects {
		idx := int32(i)
		a := g.objects[i]
		level := int(a.level)

		new_bucket := g.hash(a.Position, level)
		if int(a.cell) != new_bucket {
			grid_unlink(g.objects, g.buckets, idx)
			grid_insert(g.objects, g.buckets, idx, new_bucket)
		}

		g.frame_count++
		grid_check_collisions(g.objects, g.buckets, g.frame_count, int(a.cell), a)

		for l, count := range g.level_counts {
			if count == 0 {
				continue
			}
			size := g.level_sizes[l]
			r := a.Radius + size/g.object_cell_ratio + g.epsilon
			x1 := int64(math.Floor((a.Position.X - r) / size))
			x2 := int64(math.Floor((a.Position.X + r) / size))
			y1 := int64(math.Floor((a.Position.Y - r) / size))
			y2 := int64(math.Floor((a.Position.Y + r) / size))
			z1 := int64(math.Floor((a.Position.Z - r) / size))
			z2 := int64(math.Floor((a.Position.Z + r) / size))
			for x := x1; x <= x2; x++ {
				for y := y1; y <= y2; y++ {
					for z := z1; z <= z2; z++ {
						b := g.hash_coords(x, y, z, l)
						if g.buckets[b].last_frame == g.frame_count {
							continue
						}
						grid_check_collisions(g.objects, g.buckets, g.frame_count, b, a)
					}
				}
			}
		}
	}
}

// Dispose clears every sphere's back-pointers and empties the buckets.
func (g *HierarchicalGrid) Dispose() {
	for _, s := range g.objects {
		s.reset()
	}
	g.objects = nil
	for i := range g.buckets {
		g.buckets[i] = grid_cell{head: nilIndex}
	}
}
