// Package id generates collision-free job identifiers.
//
// Callers may supply their own job id; when they don't, Generate
// produces one by combining high-resolution time with a random
// suffix, using the same UUIDv7-based TypeID scheme the teacher
// project uses for all of its entity ids. Unlike that scheme, taskq's
// Job.ID stays a plain string — a caller-supplied id like "j1" must
// remain legal, which a fixed-prefix TypeID type would reject.
package id

import "go.jetify.com/typeid/v2"

// prefix is the TypeID prefix used for generated job ids. It never
// appears in a caller-supplied id and is purely cosmetic: it makes a
// generated id visually distinct from one a caller chose by hand.
const prefix = "job"

// Generate returns a new globally-unique job id. It panics only on a
// corrupt local entropy source (the same condition under which
// typeid.Generate itself panics-free-but-errors are vanishingly rare
// and not meaningfully recoverable at this call site).
func Generate() string {
	tid, err := typeid.Generate(prefix)
	if err != nil {
		// typeid.Generate only fails on an invalid prefix, which is a
		// compile-time constant here, or on an exhausted entropy
		// source — both are programming/environment errors, not
		// something a caller can recover from.
		panic("id: generate: " + err.Error())
	}
	return tid.String()
}
