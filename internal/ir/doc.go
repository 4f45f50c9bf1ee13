// Package ir provides the foundational value and record model for formgraph.
//
// This package contains type definitions, canonical serialization, and
// content hashing only. All other internal packages import ir; ir imports
// nothing internal. This keeps ir the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Revision is the sole concurrency token: non-negative, starts at 0,
//     bumped by exactly 1 per accepted mutation, never reused.
//   - All JSON tags use snake_case.
//   - Signatures are computed via functions in hash.go using canonical
//     JSON and SHA-256 with domain separation.
//   - Floats are permitted in values (Property values and Relation
//     strength are numeric) but NaN and Inf are rejected at the canonical
//     serialization boundary.
package ir
