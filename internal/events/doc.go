// Package events defines the canonical event record shared by every provider
// adapter, plus the per-invocation result envelope the merge engine consumes.
//
// Each event carries a deterministic SHA1-based ID namespaced by its source
// adapter, so IDs are stable across runs within one adapter's output.
// Cross-adapter uniqueness is the merge engine's job, not the model's.
package events
