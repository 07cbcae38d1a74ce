// Copyright © 2024 Galvanized Logic Inc.

package broadphase

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// config.go collects the tunable constants shared across structures.
// Defaults match the reference implementation; Config allows a driver
// to override them per run (e.g. loaded from a yaml settings file) and
// pass the result to the NewXxx constructors that accept one.

const (
	s_object_cell_ratio     = 4.0   // Uniform/Hierarchical: cell size / object diameter.
	s_cell_growth           = 4.0   // Hierarchical: level k+1 size / level k size.
	s_epsilon               = 5e-4  // Uniform/Hierarchical: neighbor-search inflation.
	s_max_depth_octree      = 5     // Octree/Loose: hard depth bound.
	s_max_depth_kdtree      = 12    // KDTree: hard depth bound.
	s_max_object_node_ratio = 8.0   // Octree/Loose: finest-cell sizing.
	s_min_split_count       = 32    // Octree: bulk-insert recursion threshold.
	s_bin_count             = 32    // KDTree: split-search bin count.
	s_accept_lower          = 0.4   // KDTree: subtree balance window, lower bound.
	s_accept_upper          = 0.6   // KDTree: subtree balance window, upper bound.

	default_bucket_count = 1024 // Uniform/Hierarchical: default hash table size.

	// Large primes used to hash 3D (and, with p4, 4D level-aware) integer
	// cell coordinates into a bucket index. See UniformGrid.hash.
	p1 = 563300407
	p2 = 495250453
	p3 = 236350427
	p4 = 153950359
)

// Config overrides the compile-time defaults above. A zero Config is
// invalid; use DefaultConfig and override individual fields.
type Config struct {
	BucketCount          int     `yaml:"bucket_count"`
	ObjectCellRatio      float64 `yaml:"object_cell_ratio"`
	CellGrowth           float64 `yaml:"cell_growth"`
	Epsilon              float64 `yaml:"epsilon"`
	MaxDepthOctree       int     `yaml:"max_depth_octree"`
	MaxDepthKDTree       int     `yaml:"max_depth_kdtree"`
	MaxObjectNodeRatio   float64 `yaml:"max_object_node_ratio"`
	MinSplitCount        int     `yaml:"min_split_count"`
	BinCount             int     `yaml:"bin_count"`
	AcceptLower          float64 `yaml:"accept_lower"`
	AcceptUpper          float64 `yaml:"accept_upper"`
}

// DefaultConfig returns the tunables from the reference implementation.
func DefaultConfig() Config {
	return Config{
		BucketCount:        default_bucket_count,
		ObjectCellRatio:    s_object_cell_ratio,
		CellGrowth:         s_cell_growth,
		Epsilon:            s_epsilon,
		MaxDepthOctree:     s_max_depth_octree,
		MaxDepthKDTree:     s_max_depth_kdtree,
		MaxObjectNodeRatio: s_max_object_node_ratio,
		MinSplitCount:      s_min_split_count,
		BinCount:           s_bin_count,
		AcceptLower:        s_accept_lower,
		AcceptUpper:        s_accept_upper,
	}
}

// LoadConfig reads a yaml settings file, starting from DefaultConfig and
// overriding whichever fields the file sets. A driver uses this to let
// an external settings file retune the structures without a recompile.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "broadphase: reading config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "broadphase: parsing config %q", path)
	}
	return cfg, nil
}
