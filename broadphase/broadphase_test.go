// Copyright © 2024 Galvanized Logic Inc.

package broadphase

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gazed/broadphase/math/lin"
)

// broadphase_test.go drives every structure with the same population and
// confirms they all report the same colliding set. Structures allocate
// their own independent copy of each sphere so that one structure's
// bookkeeping never leaks into another's.

const world_center_value = 0.0
const world_half_width = 100.0

func new_structures() []BroadPhase {
	center := *lin.NewV3S(world_center_value, world_center_value, world_center_value)
	return []BroadPhase{
		NewBruteForce(),
		NewSortAndSweep(),
		NewUniformGrid(0),
		NewHierarchicalGrid(0),
		NewOctree(center, world_half_width, true),
		NewOctree(center, world_half_width, false),
		NewLooseOctree(center, world_half_width, true),
		NewLooseOctree(center, world_half_width, false),
		NewKDTree(center, world_half_width),
	}
}

// seed_population returns bp's own private copy of a template population.
func seed_population(bp BroadPhase, template []*Sphere) []*Sphere {
	pop := make([]*Sphere, len(template))
	for i, s := range template {
		c := NewSphere(s.ID, s.Position, s.Radius)
		c.Velocity = s.Velocity
		pop[i] = c
	}
	bp.AddObjects(pop)
	return pop
}

func flag_vector(pop []*Sphere) []bool {
	out := make([]bool, len(pop))
	for i, s := range pop {
		out[i] = s.Colliding
	}
	return out
}

func clear_flags(pop []*Sphere) {
	for _, s := range pop {
		s.Colliding = false
	}
}

// run_and_compare seeds every structure from template, runs the given
// per-tick position mutator for tick_count ticks, and requires every
// structure's flag vector to agree after every tick.
func run_and_compare(t *testing.T, template []*Sphere, tick_count int, mutate func(tick int, template []*Sphere)) {
	t.Helper()
	structures := new_structures()
	populations := make([][]*Sphere, len(structures))
	for i, bp := range structures {
		populations[i] = seed_population(bp, template)
	}
	defer func() {
		for _, bp := range structures {
			bp.Dispose()
		}
	}()

	for tick := 0; tick < tick_count; tick++ {
		mutate(tick, template)
		for i, pop := range populations {
			for j, s := range pop {
				s.Position = template[j].Position
				s.Velocity = template[j].Velocity
			}
			clear_flags(pop)
			structures[i].Update()
		}
		want := flag_vector(populations[0])
		for i := 1; i < len(populations); i++ {
			require.Equal(t, want, flag_vector(populations[i]),
				"tick %d: structure %d disagrees with BruteForce", tick, i)
		}
	}
}

func TestScenarioTwoSpheresOverlap(t *testing.T) {
	template := []*Sphere{
		NewSphere(0, *lin.NewV3S(0, 0, 0), 1),
		NewSphere(1, *lin.NewV3S(1.5, 0, 0), 1),
	}
	structures := new_structures()
	for _, bp := range structures {
		pop := seed_population(bp, template)
		bp.Update()
		require.True(t, pop[0].Colliding)
		require.True(t, pop[1].Colliding)
		bp.Dispose()
	}
}

func TestScenarioTwoSpheresApart(t *testing.T) {
	template := []*Sphere{
		NewSphere(0, *lin.NewV3S(0, 0, 0), 1),
		NewSphere(1, *lin.NewV3S(2.01, 0, 0), 1),
	}
	structures := new_structures()
	for _, bp := range structures {
		pop := seed_population(bp, template)
		bp.Update()
		require.False(t, pop[0].Colliding)
		require.False(t, pop[1].Colliding)
		bp.Dispose()
	}
}

func TestScenarioLineOfSpheresExactSpacing(t *testing.T) {
	const n = 100
	template := make([]*Sphere, n)
	for i := 0; i < n; i++ {
		template[i] = NewSphere(int32(i), *lin.NewV3S(float64(i)*2, 0, 0), 1)
	}
	structures := new_structures()
	for _, bp := range structures {
		pop := seed_population(bp, template)
		bp.Update()
		for _, s := range pop {
			require.False(t, s.Colliding, "spacing exactly 2r must not flag under the strict predicate")
		}
		bp.Dispose()
	}
}

func TestSelfExclusionLoneSphere(t *testing.T) {
	template := []*Sphere{NewSphere(0, *lin.NewV3S(0, 0, 0), 3)}
	structures := new_structures()
	for _, bp := range structures {
		pop := seed_population(bp, template)
		bp.Update()
		require.False(t, pop[0].Colliding)
		bp.Dispose()
	}
}

func TestIdempotence(t *testing.T) {
	template := []*Sphere{
		NewSphere(0, *lin.NewV3S(0, 0, 0), 1),
		NewSphere(1, *lin.NewV3S(1.5, 0, 0), 1),
		NewSphere(2, *lin.NewV3S(50, 50, 50), 1),
	}
	structures := new_structures()
	for _, bp := range structures {
		pop := seed_population(bp, template)
		bp.Update()
		first := flag_vector(pop)
		bp.Update() // no position change, flags not cleared between calls
		require.Equal(t, first, flag_vector(pop))
		bp.Dispose()
	}
}

func TestSymmetry(t *testing.T) {
	template := []*Sphere{
		NewSphere(0, *lin.NewV3S(0, 0, 0), 2),
		NewSphere(1, *lin.NewV3S(1, 0, 0), 2),
		NewSphere(2, *lin.NewV3S(40, 40, 40), 1),
	}
	structures := new_structures()
	for _, bp := range structures {
		pop := seed_population(bp, template)
		bp.Update()
		if overlaps(pop[0], pop[1]) {
			require.True(t, pop[0].Colliding, "A overlaps B so A must be flagged")
			require.True(t, pop[1].Colliding, "A overlaps B so B must be flagged too (symmetry)")
		} else {
			require.Equal(t, pop[0].Colliding, pop[1].Colliding)
		}
		bp.Dispose()
	}
}

// TestUniversalEquivalenceRandomPopulation is scenario 3: a 1000-sphere
// population with radii in [1.25, 7.25], randomly placed in [-50,50]^3,
// driven for 100 ticks by reflection off a [-100,100]^3 box. All seven
// structures must agree on the flag vector after every tick.
func TestUniversalEquivalenceRandomPopulation(t *testing.T) {
	if testing.Short() {
		t.Skip("exhaustive cross-structure agreement test skipped in -short mode")
	}
	const n = 1000
	const bound = 100.0
	rng := rand.New(rand.NewSource(42))

	template := make([]*Sphere, n)
	for i := 0; i < n; i++ {
		radius := 1.25 + rng.Float64()*(7.25-1.25)
		pos := *lin.NewV3S(
			(rng.Float64()*2-1)*50,
			(rng.Float64()*2-1)*50,
			(rng.Float64()*2-1)*50,
		)
		s := NewSphere(int32(i), pos, radius)
		s.Velocity = *lin.NewV3S((rng.Float64()*2-1)*2, (rng.Float64()*2-1)*2, (rng.Float64()*2-1)*2)
		template[i] = s
	}

	reflect := func(tick int, pop []*Sphere) {
		for _, s := range pop {
			s.Position.Add(&s.Position, &s.Velocity)
			for axis := 0; axis < 3; axis++ {
				c := s.Position.Get(axis)
				if c > bound || c < -bound {
					switch axis {
					case 0:
						s.Velocity.X = -s.Velocity.X
					case 1:
						s.Velocity.Y = -s.Velocity.Y
					default:
						s.Velocity.Z = -s.Velocity.Z
					}
					clamped := math.Min(math.Max(c, -bound), bound)
					switch axis {
					case 0:
						s.Position.X = clamped
					case 1:
						s.Position.Y = clamped
					default:
						s.Position.Z = clamped
					}
				}
			}
		}
	}

	run_and_compare(t, template, 100, reflect)
}

// TestBroadPhaseSwitch is scenario 6: disposing one structure and
// seeding another with the same positions must agree on the first
// post-switch tick.
func TestBroadPhaseSwitch(t *testing.T) {
	template := []*Sphere{
		NewSphere(0, *lin.NewV3S(0, 0, 0), 1),
		NewSphere(1, *lin.NewV3S(1.5, 0, 0), 1),
		NewSphere(2, *lin.NewV3S(40, 40, 40), 2),
	}
	center := *lin.NewV3S(0, 0, 0)

	bf := NewBruteForce()
	popA := seed_population(bf, template)
	bf.Update()
	want := flag_vector(popA)
	bf.Dispose()
	for _, s := range popA {
		require.Equal(t, nilIndex, s.cell)
		require.Equal(t, nilIndex, s.next)
	}

	kd := NewKDTree(center, world_half_width)
	popB := seed_population(kd, template)
	kd.Update()
	require.Equal(t, want, flag_vector(popB))
	kd.Dispose()
}
