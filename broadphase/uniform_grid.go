// Copyright © 2024 Galvanized Logic Inc.

package broadphase

import (
	"math"

	"github.com/gazed/broadphase/math/lin"
)

// uniform_grid.go is a single-level spatial hash: every sphere's AABB,
// inflated by a small slack, touches at most a 3x3x3 block of cells
// around its own because cells are sized to the largest installed
// sphere's diameter times s_object_cell_ratio.

// UniformGrid is a fixed-size array of hash buckets, each an intrusive
// list of spheres plus a last_frame timestamp.
type UniformGrid struct {
	objects           []*Sphere
	buckets           []grid_cell
	cell_size         float64
	frame_count       int64
	strategy          HashStrategy
	object_cell_ratio float64
	epsilon           float64
}

// NewUniformGrid creates a grid with the given bucket count (suggested
// power of two; defaults to 1024 when count <= 0), hashing cell
// coordinates with the reference large-prime formula and DefaultConfig's
// cell-sizing tunables.
func NewUniformGrid(bucket_count int) *UniformGrid {
	return NewUniformGridConfig(DefaultConfig(), bucket_count, HashPrime)
}

// NewUniformGridStrategy is NewUniformGrid with an explicit hash strategy.
func NewUniformGridStrategy(bucket_count int, strategy HashStrategy) *UniformGrid {
	return NewUniformGridConfig(DefaultConfig(), bucket_count, strategy)
}

// NewUniformGridConfig is NewUniformGridStrategy with cfg's ObjectCellRatio
// and Epsilon retuning cell sizing and neighbor-search inflation in place
// of the package defaults, and cfg.BucketCount used whenever bucket_count
// <= 0.
func NewUniformGridConfig(cfg Config, bucket_count int, strategy HashStrategy) *UniformGrid {
	if bucket_count <= 0 {
		bucket_count = cfg.BucketCount
	}
	return &UniformGrid{
		buckets:           make_grid_cells(bucket_count),
		strategy:          strategy,
		object_cell_ratio: cfg.ObjectCellRatio,
		epsilon:           cfg.Epsilon,
	}
}

// AddObjects installs spheres, sizes cells from the largest diameter
// seen, then inserts each sphere into its hashed bucket.
func (g *UniformGrid) AddObjects(spheres []*Sphere) {
	g.objects = append(g.objects, spheres...)

	d_max := 0.0
	for _, s := range g.objects {
		if d := 2 * s.Radius; d > d_max {
			d_max = d
		}
	}
	if d_max == 0 {
		d_max = 1 // population of zero-radius spheres: avoid a zero cell size.
	}
	g.cell_size = d_max * g.object_cell_ratio

	for i, s := range g.objects {
		idx := int32(i)
		grid_insert(g.objects, g.buckets, idx, g.hash(s.Position))
	}
}

// coords converts a world position into integer cell coordinates.
func (g *UniformGrid) coords(pos lin.V3) (x, y, z int64) {
	return int64(math.Floor(pos.X / g.cell_size)),
		int64(math.Floor(pos.Y / g.cell_size)),
		int64(math.Floor(pos.Z / g.cell_size))
}

// hash_coords maps integer cell coordinates to a bucket index, per the
// grid's configured HashStrategy.
func (g *UniformGrid) hash_coords(x, y, z int64) int {
	n := int64(len(g.buckets))
	if g.strategy == HashSeaHash {
		return seahash_coords(x, y, z, 0, n)
	}
	h := (p1*x + p2*y + p3*z) % n
	if h < 0 {
		h += n
	}
	return int(h)
}

func (g *UniformGrid) hash(pos lin.V3) int {
	x, y, z := g.coords(pos)
	return g.hash_coords(x, y, z)
}

// Update re-hashes every sphere's bucket, tests it against its own
// bucket and against every neighbor cell its inflated AABB touches,
// skipping any bucket already visited this outer-sphere iteration.
func (g *UniformGrid) Update() {
	inflate := g.cell_size/g.object_cell_ratio + g.epsilon
	for i := range g.objects {
		idx := int32(i)
		a := g.objects[i]

		new_bucket := g.hash(a.Position)
		if int(a.cell) != new_bucket {
			grid_unlink(g.objects, g.buckets, idx)
			grid_insert(g.objects, g.buckets, idx, new_bucket)
		}

		g.frame_count++
		grid_check_collisions(g.objects, g.buckets, g.frame_count, int(a.cell), a)

		r := a.Radius + inflate
		x1, y1, z1 := g.coords(lin.V3{X: a.Position.X - r, Y: a.Position.Y - r, Z: a.Position.Z - r})
		x2, y2, z2 := g.coords(lin.V3{X: a.Position.X + r, Y: a.Position.Y + r, Z: a.Position.Z + r})
		for x := x1; x <= x2; x++ {
			for y := y1; y <= y2; y++ {
				for z := z1; z <= z2; z++ {
					b := g.hash_coords(x, y, z)
					if g.buckets[b].last_frame == g.frame_count {
						continue
					}
					grid_check_collisions(g.objects, g.buckets, g.frame_count, b, a)
				}
			}
		}
	}
}

// Dispose clears every sphere's back-pointers and empties the buckets.
func (g *UniformGrid) Dispose() {
	for _, s := range g.objects {
		s.reset()
	}
	g.objects = nil
	for i := range g.buckets {
		g.buckets[i] = grid_cell{head: nilIndex}
	}
}
