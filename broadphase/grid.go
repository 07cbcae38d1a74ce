// Copyright © 2024 Galvanized Logic Inc.

package broadphase

import (
	"encoding/binary"

	"blainsmith.com/go/seahash"
)

// grid.go holds the hash-bucket primitives shared by UniformGrid and
// HierarchicalGrid: an intrusive list per bucket (head index into the
// owning structure's objects slice) plus a last_frame stamp used to
// dedup a bucket visited twice while scanning one outer sphere's
// neighborhood.

// HashStrategy selects how integer cell coordinates become a bucket
// index. HashPrime is the reference large-prime multiply-mod; HashSeaHash
// runs the same coordinates through seahash, trading the prime hash's
// easy-to-reason-about clustering for better avalanche on pathological
// (axis-aligned, low-entropy) populations.
type HashStrategy int

const (
	HashPrime HashStrategy = iota
	HashSeaHash
)

// seahash_coords hashes (x, y, z, level) through seahash and reduces the
// result into [0, n).
func seahash_coords(x, y, z, level, n int64) int {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(x))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(y))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(z))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(level))
	return int(seahash.Sum64(buf[:]) % uint64(n))
}

type grid_cell struct {
	head       int32 // index into objects, or nilIndex when empty.
	last_frame int64
}

func make_grid_cells(count int) []grid_cell {
	cells := make([]grid_cell, count)
	for i := range cells {
		cells[i].head = nilIndex
	}
	return cells
}

// grid_insert prepends objects[idx] to buckets[bucket]'s intrusive list
// and points its cell back-pointer at that bucket.
func grid_insert(objects []*Sphere, buckets []grid_cell, idx int32, bucket int) {
	s := objects[idx]
	s.next = buckets[bucket].head
	s.cell = int32(bucket)
	buckets[bucket].head = idx
}

// grid_unlink removes objects[idx] from whichever bucket its cell
// back-pointer currently names.
func grid_unlink(objects []*Sphere, buckets []grid_cell, idx int32) {
	s := objects[idx]
	if s.cell == nilIndex {
		return
	}
	bucket := int(s.cell)
	cur := buckets[bucket].head
	if cur == idx {
		buckets[bucket].head = s.next
		s.next, s.cell = nilIndex, nilIndex
		return
	}
	found := false
	for cur != nilIndex {
		cs := objects[cur]
		if cs.next == idx {
			cs.next = s.next
			found = true
			break
		}
		cur = cs.next
	}
	assertf(found, "sphere %d claims bucket %d but that bucket's list does not contain it", s.ID, bucket)
	s.next, s.cell = nilIndex, nilIndex
}

// onBucketVisit, when non-nil, is invoked by grid_check_collisions for
// every bucket it actually visits. Tests use this hook to verify the
// frame-stamp dedup invariant (a bucket is visited at most once per
// outer-sphere neighborhood search); nil in normal operation costs one
// nil check per visit.
var onBucketVisit func(bucket int)

// grid_check_collisions stamps buckets[bucket] with frame, then tests a
// against every sphere currently linked there, flagging overlaps.
func grid_check_collisions(objects []*Sphere, buckets []grid_cell, frame int64, bucket int, a *Sphere) {
	if onBucketVisit != nil {
		onBucketVisit(bucket)
	}
	buckets[bucket].last_frame = frame
	idx := buckets[bucket].head
	for idx != nilIndex {
		b := objects[idx]
		if b != a && overlaps(a, b) {
			flag(a, b)
		}
		idx = b.next
	}
}
