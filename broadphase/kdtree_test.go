// Copyright © 2024 Galvanized Logic Inc.

package broadphase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gazed/broadphase/math/lin"
)

// TestKDTreeRebalanceTrigger covers the KD-tree rebuild-trigger property: drift a population until one
// side of the root split holds nearly everything, then confirm the next
// Update() rebuilds the subtree and restores the left/right ratio to the
// acceptance window.
func TestKDTreeRebalanceTrigger(t *testing.T) {
	center := *lin.NewV3S(0, 0, 0)
	tree := NewKDTree(center, 50)

	const n = 40
	spheres := make([]*Sphere, n)
	for i := 0; i < n; i++ {
		x := -40.0 + float64(i)*2.0 // evenly spread along the root's split axis.
		spheres[i] = NewSphere(int32(i), *lin.NewV3S(x, 0, 0), 0.2)
	}
	tree.AddObjects(spheres)

	root := &tree.nodes[tree.root]
	require.False(t, root.leaf, "40 spheres over a bin count of 32 should split at the root")
	left0, right0 := tree.nodes[root.left].object_total, tree.nodes[root.right].object_total
	ratio0 := float64(left0) / float64(left0+right0)
	require.InDelta(t, 0.5, ratio0, 0.15, "initial binned split should be roughly balanced")

	// Drag every sphere on the right side across the split plane so the
	// root ends up holding almost everything on its left child.
	for i := n / 2; i < n; i++ {
		spheres[i].Position = *lin.NewV3S(-39.0-float64(i)*0.01, 0, 0)
	}
	tree.Update()

	root = &tree.nodes[tree.root]
	require.False(t, root.leaf)
	left1, right1 := tree.nodes[root.left].object_total, tree.nodes[root.right].object_total
	ratio1 := float64(left1) / float64(left1+right1)
	require.GreaterOrEqual(t, ratio1, s_accept_lower)
	require.LessOrEqual(t, ratio1, s_accept_upper)
}

// TestKDTreeRebuildCounterObservesDrift is scenario 5: a population
// concentrated at one corner and drifting outward must trip at least one
// subtree rebuild within the first few ticks, observable via RebuildCount.
func TestKDTreeRebuildCounterObservesDrift(t *testing.T) {
	center := *lin.NewV3S(0, 0, 0)
	tree := NewKDTree(center, 100)

	const n = 1000
	spheres := make([]*Sphere, n)
	for i := 0; i < n; i++ {
		spheres[i] = NewSphere(int32(i), *lin.NewV3S(-99, -99, -99), 0.1)
		spheres[i].Velocity = *lin.NewV3S(float64(i%10)*0.2+0.1, float64((i/10)%10)*0.2+0.1, float64((i/100)%10)*0.2+0.1)
	}
	tree.AddObjects(spheres)
	require.Equal(t, int64(0), tree.RebuildCount())

	for tick := 0; tick < 10; tick++ {
		for _, s := range spheres {
			s.Position.Add(&s.Position, &s.Velocity)
			s.Colliding = false
		}
		tree.Update()
		if tree.RebuildCount() > 0 {
			return
		}
	}
	t.Fatalf("expected at least one subtree rebuild within 10 ticks of outward drift, got %d", tree.RebuildCount())
}

// TestKDTreeConfigRetunesBinCount confirms NewKDTreeConfig's bin count
// and acceptance window actually override the package defaults.
func TestKDTreeConfigRetunesBinCount(t *testing.T) {
	center := *lin.NewV3S(0, 0, 0)
	cfg := DefaultConfig()
	cfg.BinCount = 4
	cfg.AcceptLower, cfg.AcceptUpper = 0.45, 0.55

	tree := NewKDTreeConfig(cfg, center, 50)
	require.Equal(t, 4, tree.bin_count)
	require.Equal(t, 0.45, tree.accept_lower)
	require.Equal(t, 0.55, tree.accept_upper)

	const n = 20
	spheres := make([]*Sphere, n)
	for i := 0; i < n; i++ {
		spheres[i] = NewSphere(int32(i), *lin.NewV3S(-40+float64(i)*2, 0, 0), 0.2)
	}
	tree.AddObjects(spheres)

	root := &tree.nodes[tree.root]
	require.False(t, root.leaf, "20 spheres over a bin count of 4 should still split at the root")
}

func TestKDTreeCollisionAcrossSplit(t *testing.T) {
	center := *lin.NewV3S(0, 0, 0)
	tree := NewKDTree(center, 50)
	a := NewSphere(0, *lin.NewV3S(-0.05, 0, 0), 1)
	b := NewSphere(1, *lin.NewV3S(0.05, 0, 0), 1)
	tree.AddObjects([]*Sphere{a, b})
	tree.Update()
	require.True(t, a.Colliding)
	require.True(t, b.Colliding)
}
