// Copyright © 2024 Galvanized Logic Inc.

package broadphase

import "github.com/pkg/errors"

// errors.go centralizes invariant-violation failures. The core has no
// I/O and therefore no recoverable failure modes (see spec §7): a
// sphere whose cell back-pointer disagrees with the structure that
// claims to own it, or a tree walk that runs off a nil node it should
// never reach, is a programming error. These assert helpers panic with
// a wrapped error carrying a stack trace rather than limping on with
// corrupted indexing.

// assert panics with msg if cond is false.
func assert(cond bool, msg string) {
	if !cond {
		panic(errors.New("broadphase: invariant violated: " + msg))
	}
}

// assertf is like assert but formats msg with args via errors.Errorf.
func assertf(cond bool, msg string, args ...interface{}) {
	if !cond {
		panic(errors.Errorf("broadphase: invariant violated: "+msg, args...))
	}
}
