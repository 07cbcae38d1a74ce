// Copyright © 2024 Galvanized Logic Inc.

package broadphase

import (
	"math"

	"github.com/gazed/broadphase/math/lin"
)

// octree.go is an axis-aligned cube octree preallocated once to a depth
// bound chosen from the installed population. Spheres that straddle a
// node's midplane on any axis stay at that node ("stuck at straddle");
// otherwise they recurse into the indicated child. Two update modes
// share the same tree and insertion policy: rebuild clears every node's
// list and reinserts the whole population top-down each tick; incremental
// only touches spheres whose current node no longer contains them.

type octree_node struct {
	parent       int32
	children     [8]int32
	center       lin.V3
	half_width   float64
	head         int32 // local intrusive list head, or nilIndex.
	object_count int32
}

// Octree is an axis-aligned octree over a fixed cubic region.
type Octree struct {
	nodes   []octree_node
	root    int32
	objects []*Sphere

	center     lin.V3
	half_width float64
	rebuild    bool
	max_depth  int
	stack      []int32 // scratch ancestor stack, reused by every walk() call.

	depth_cap             int     // hard depth bound; see Config.MaxDepthOctree.
	max_object_node_ratio float64
}

// NewOctree creates an octree over the cube centered at center with the
// given half-width. rebuild selects full-rebuild mode; false selects
// incremental mode. The tree itself is built lazily in AddObjects once
// the installed population's diameters are known, using DefaultConfig's
// depth bound and node-sizing ratio.
func NewOctree(center lin.V3, half_width float64, rebuild bool) *Octree {
	return NewOctreeConfig(DefaultConfig(), center, half_width, rebuild)
}

// NewOctreeConfig is NewOctree with cfg's MaxDepthOctree and
// MaxObjectNodeRatio retuning the depth bound and finest-cell sizing in
// place of the package defaults.
func NewOctreeConfig(cfg Config, center lin.V3, half_width float64, rebuild bool) *Octree {
	return &Octree{
		center:                center,
		half_width:            half_width,
		rebuild:               rebuild,
		root:                  nilIndex,
		depth_cap:             cfg.MaxDepthOctree,
		max_object_node_ratio: cfg.MaxObjectNodeRatio,
	}
}

// build_octree recursively preallocates a complete 8-ary tree down to
// max_depth, returning the index of the node it just created.
func build_octree(nodes *[]octree_node, center lin.V3, half_width float64, depth, max_depth int, parent int32) int32 {
	idx := int32(len(*nodes))
	*nodes = append(*nodes, octree_node{parent: parent, center: center, half_width: half_width, head: nilIndex})
	for i := range (*nodes)[idx].children {
		(*nodes)[idx].children[i] = nilIndex
	}
	if depth >= max_depth {
		return idx
	}
	child_half := half_width / 2
	for i := 0; i < 8; i++ {
		sx, sy, sz := child_half, child_half, child_half
		if i&1 == 0 {
			sx = -sx
		}
		if i&2 == 0 {
			sy = -sy
		}
		if i&4 == 0 {
			sz = -sz
		}
		child_center := lin.V3{X: center.X + sx, Y: center.Y + sy, Z: center.Z + sz}
		child_idx := build_octree(nodes, child_center, child_half, depth+1, max_depth, idx)
		(*nodes)[idx].children[i] = child_idx
	}
	return idx
}

// child_index picks one of 8 children from the sign of pos relative to center.
func child_index(pos, center *lin.V3) int {
	idx := 0
	if pos.X >= center.X {
		idx |= 1
	}
	if pos.Y >= center.Y {
		idx |= 2
	}
	if pos.Z >= center.Z {
		idx |= 4
	}
	return idx
}

// AddObjects installs spheres, sizes the tree depth from the smallest
// installed diameter, builds the node arena, then inserts every sphere
// top-down.
func (t *Octree) AddObjects(spheres []*Sphere) {
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
	t.stack = make([]int32, 0, depth+1)

	for i := range t.objects {
		t.insert(t.root, int32(i))
	}
}

func (t *Octree) insert_local(node_idx, sphere_idx int32) {
	node := &t.nodes[node_idx]
	s := t.objects[sphere_idx]
	s.next = node.head
	s.cell = node_idx
	node.head = sphere_idx
	node.object_count++
}

func (t *Octree) unlink_local(sphere_idx int32) {
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

// insert recurses from node_idx, keeping the sphere at the shallowest
// node it straddles and otherwise descending by child sign.
func (t *Octree) insert(node_idx, sphere_idx int32) {
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

// contains reports whether node_idx's cube fully contains sphere s.
func (t *Octree) contains(node_idx int32, s *Sphere) bool {
	node := &t.nodes[node_idx]
	for axis := 0; axis < 3; axis++ {
		c, p := node.center.Get(axis), s.Position.Get(axis)
		if p-s.Radius < c-node.half_width || p+s.Radius > c+node.half_width {
			return false
		}
	}
	return true
}

// Update repairs the index (rebuild or incremental, per construction
// mode) then runs the ancestor-stack collision query.
func (t *Octree) Update() {
	if t.rebuild {
		t.rebuild_all()
	} else {
		t.update_incremental()
	}
	t.walk(t.root, t.stack[:0])
}

func (t *Octree) rebuild_all() {
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

func (t *Octree) update_incremental() {
	for i := range t.objects {
		idx := int32(i)
		s := t.objects[i]
		if s.cell != nilIndex && t.contains(s.cell, s) {
			continue
		}
		old := s.cell
		t.unlink_local(idx)

		ancestor := int32(nilIndex)
		if old != nilIndex {
			ancestor = t.nodes[old].parent
		}
		for ancestor != nilIndex && !t.contains(ancestor, s) {
			ancestor = t.nodes[ancestor].parent
		}
		if ancestor == nilIndex {
			// No containing ancestor on the path to the root:
			// fall back to the root rather than silently dropping the
			// sphere from the index.
			ancestor = t.root
		}
		t.insert(ancestor, idx)
	}
}

// walk is the pre-order ancestor-stack DFS: every sphere at node_idx is
// tested against the rest of node_idx's own list and against every
// sphere held by an ancestor in stack.
func (t *Octree) walk(node_idx int32, stack []int32) {
	node := &t.nodes[node_idx]
	for i := node.head; i != nilIndex; i = t.objects[i].next {
		a := t.objects[i]
		for j := t.objects[i].next; j != nilIndex; j = t.objects[j].next {
			if b := t.objects[j]; overlaps(a, b) {
				flag(a, b)
			}
		}
		for _, anc := range stack {
			for k := t.nodes[anc].head; k != nilIndex; k = t.objects[k].next {
				if b := t.objects[k]; overlaps(a, b) {
					flag(a, b)
				}
			}
		}
	}
	next_stack := append(stack, node_idx)
	for _, child := range node.children {
		if child != nilIndex {
			t.walk(child, next_stack)
		}
	}
}

// Dispose clears every sphere's back-pointers and drops the node arena.
func (t *Octree) Dispose() {
	for _, s := range t.objects {
		s.reset()
	}
	t.objects = nil
	t.nodes = nil
	t.root = nilIndex
}
