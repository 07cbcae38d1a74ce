// Copyright © 2024 Galvanized Logic Inc.

package broadphase

import (
	"math"

	"github.com/gazed/broadphase/math/lin"
)

// loose_octree.go shares geometry and the straddle insertion policy with
// octree.go, but containment and collision query differ: a node "loosely
// contains" a sphere when the sphere fits a cube of side 4x the node's
// half-width (looseness factor 2), which keeps more spheres at deeper
// nodes. Because loose boxes of siblings overlap, the collision query
// cannot use a pure ancestor stack; it instead walks top-down per outer
// sphere, visiting every node whose loose box is within reach.

// LooseOctree is an octree whose containment test uses a doubled
// half-width, trading straddling for looser (overlapping) node boxes.
type LooseOctree struct {
	nodes   []octree_node
	root    int32
	objects []*Sphere

	center     lin.V3
	half_width float64
	rebuild    bool
	max_depth  int

	depth_cap             int
	max_object_node_ratio float64
}

// NewLooseOctree creates a loose octree over the cube centered at center
// with the given half-width. rebuild selects full-rebuild mode; false
// selects incremental mode. Uses DefaultConfig's depth bound and
// node-sizing ratio.
func NewLooseOctree(center lin.V3, half_width float64, rebuild bool) *LooseOctree {
	return NewLooseOctreeConfig(DefaultConfig(), center, half_width, rebuild)
}

// NewLooseOctreeConfig is NewLooseOctree with cfg's MaxDepthOctree and
// MaxObjectNodeRatio retuning the depth bound and finest-cell sizing in
// place of the package defaults.
func NewLooseOctreeConfig(cfg Config, center lin.V3, half_width float64, rebuild bool) *LooseOctree {
	return &LooseOctree{
		center:                center,
		half_width:            half_width,
		rebuild:               rebuild,
		root:                  nilIndex,
		depth_cap:             cfg.MaxDepthOctree,
		max_object_node_ratio: cfg.MaxObjectNodeRatio,
	}
}

// AddObjects installs spheres, sizes the tree depth from the smallest
// installed diameter, builds the node arena, then inserts every sphere
// top-down using the same straddle policy as Octree.
func (t *LooseOctree) AddObjects(spheres []*Sphere) {
	t.objects = append(t.objects, spheres...)

	d_min := math.Inf(1)
	for _, s := range t.objects {
		if d := 2 * s.Radius; d < d_min {
			d_min = d
		}
	}
	if d_min == math.Inf(1) {
		d_min = 1
	}

	depth, width := 0, t.half_width*2
	for depth < t.depth_cap && width/2 >= d_min*t.max_object_node_ratio {
		width /= 2
		depth++
	}
	t.max_depth = depth

	t.nodes = nil
	t.root = build_octree(&t.nodes, t.center, t.half_width, 0, depth, nilIndex)

	for i := range t.objects {
		t.insert(t.root, int32(i))
	}
}

func (t *LooseOctree) insert_local(node_idx, sphere_idx int32) {
	node := &t.nodes[node_idx]
	s := t.objects[sphere_idx]
	s.next = node.head
	s.cell = node_idx
	node.head = sphere_idx
	node.object_count++
}

func (t *LooseOctree) unlink_local(sphere_idx int32) {
	s := t.objects[sphere_idx]
	if s.cell == nilIndex {
		return
	}
	node := &t.nodes[s.cell]
	cur := node.head
	if cur == sphere_idx {
		node.head = s.next
		node.object_count--
		s.next, s.cell = nilIndex, nilIndex
		return
	}
	found := false
	for cur != nilIndex {
		cs := t.objects[cur]
		if cs.next == sphere_idx {
			cs.next = s.next
			found = true
			break
		}
		cur = cs.next
	}
	assertf(found, "sphere %d claims node %d but that node's list does not contain it", s.ID, s.cell)
	node.object_count--
	s.next, s.cell = nilIndex, nilIndex
}

// insert uses the tight half-width implicitly: child descent depends
// only on the sign of the offset and the straddle radius test, which is
// unaffected by looseness (see octree.go's identical policy).
func (t *LooseOctree) insert(node_idx, sphere_idx int32) {
	node := &t.nodes[node_idx]
	s := t.objects[sphere_idx]
	if node.children[0] == nilIndex {
		t.insert_local(node_idx, sphere_idx)
		return
	}
	for axis := 0; axis < 3; axis++ {
		offset := s.Position.Get(axis) - node.center.Get(axis)
		if math.Abs(offset) < s.Radius {
			t.insert_local(node_idx, sphere_idx)
			return
		}
	}
	t.insert(node.children[child_index(&s.Position, &node.center)], sphere_idx)
}

// contains_loose reports whether node_idx's doubled-half-width cube
// contains sphere s. Used to decide whether a sphere may stay put.
func (t *LooseOctree) contains_loose(node_idx int32, s *Sphere) bool {
	node := &t.nodes[node_idx]
	loose_half := node.half_width * 2
	for axis := 0; axis < 3; axis++ {
		c, p := node.center.Get(axis), s.Position.Get(axis)
		if p-s.Radius < c-loose_half || p+s.Radius > c+loose_half {
			return false
		}
	}
	return true
}

// contains_tight reports whether node_idx's true (non-loose) cube
// contains sphere s. Used only when walking upward for reinsertion so
// the containment hierarchy stays unambiguous.
func (t *LooseOctree) contains_tight(node_idx int32, s *Sphere) bool {
	node := &t.nodes[node_idx]
	for axis := 0; axis < 3; axis++ {
		c, p := node.center.Get(axis), s.Position.Get(axis)
		if p-s.Radius < c-node.half_width || p+s.Radius > c+node.half_width {
			return false
		}
	}
	return true
}

// Update repairs the index (rebuild or incremental) then runs the
// top-down, per-sphere loose-box collision query.
func (t *LooseOctree) Update() {
	if t.rebuild {
		t.rebuild_all()
	} else {
		t.update_incremental()
	}
	for _, a := range t.objects {
		t.check_collisions(t.root, a)
	}
}

func (t *LooseOctree) rebuild_all() {
	for i := range t.nodes {
		t.nodes[i].head = nilIndex
		t.nodes[i].object_count = 0
	}
	for i := range t.objects {
		s := t.objects[i]
		s.next, s.cell = nilIndex, nilIndex
		t.insert(t.root, int32(i))
	}
}

func (t *LooseOctree) update_incremental() {
	for i := range t.objects {
		idx := int32(i)
		s := t.objects[i]
		if s.cell != nilIndex && t.contains_loose(s.cell, s) {
			continue
		}
		old := s.cell
		t.unlink_local(idx)

		ancestor := int32(nilIndex)
		if old != nilIndex {
			ancestor = t.nodes[old].parent
		}
		for ancestor != nilIndex && !t.contains_tight(ancestor, s) {
			ancestor = t.nodes[ancestor].parent
		}
		if ancestor == nilIndex {
			// No non-loose ancestor contains the object on the path to
			// the root. Rather than dropping it from the index (the
			// source's behavior is implementation-defined here), treat
			// the root as containing everything and reinsert there.
			ancestor = t.root
		}
		t.insert(ancestor, idx)
	}
}

// check_collisions visits node_idx only if its loose box is within a's
// reach, tests a against every sphere held locally, then recurses into
// every child regardless of the sibling loose-box overlaps.
func (t *LooseOctree) check_collisions(node_idx int32, a *Sphere) {
	if !t.loose_box_overlaps(node_idx, a) {
		return
	}
	node := &t.nodes[node_idx]
	for k := node.head; k != nilIndex; k = t.objects[k].next {
		if b := t.objects[k]; b != a && overlaps(a, b) {
			flag(a, b)
		}
	}
	for _, child := range node.children {
		if child != nilIndex {
			t.check_collisions(child, a)
		}
	}
}

// loose_box_overlaps is a squared-distance-to-AABB test between a's
// sphere and node_idx's loose (doubled half-width) box.
func (t *LooseOctree) loose_box_overlaps(node_idx int32, a *Sphere) bool {
	node := &t.nodes[node_idx]
	loose_half := node.half_width * 2
	dist_sqr := 0.0
	for axis := 0; axis < 3; axis++ {
		c, p := node.center.Get(axis), a.Position.Get(axis)
		if d := math.Abs(p-c) - loose_half; d > 0 {
			dist_sqr += d * d
		}
	}
	return dist_sqr <= a.Radius*a.Radius
}

// Dispose clears every sphere's back-pointers and drops the node arena.
func (t *LooseOctree) Dispose() {
	for _, s := range t.objects {
		s.reset()
	}
	t.objects = nil
	t.nodes = nil
	t.root = nilIndex
}
