// Package harness executes YAML-defined sync scenarios against a scripted
// in-memory remote store and verifies the resulting action trace, either
// through declarative assertions or byte-exact golden files.
//
// Scenarios are fully deterministic: the remote never fires on its own,
// timestamps come from a fixed-step clock, and the fake store's native child
// order is lexicographic.
package harness
