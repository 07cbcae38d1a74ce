// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package lin provides the 3-element vector math the broadphase package
// needs for sphere centers, cell coordinates, and node bounds.
//
// Package lin is provided as part of the vu (virtual universe) 3D engine.
package lin

import "math"

// Epsilon is used to distinguish when a float is close enough to a number.
const Epsilon float64 = 0.000001

// AeqZ (~=) almost-equals returns true if the difference between x and zero
// is so small that it doesn't matter.
func AeqZ(x float64) bool { return math.Abs(x) < Epsilon }

// Aeq (~=) almost-equals returns true if the difference between a and b is
// so small that it doesn't matter.
func Aeq(a, b float64) bool { return math.Abs(a-b) < Epsilon }
