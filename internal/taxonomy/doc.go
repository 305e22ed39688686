// Package taxonomy maps arbitrary provider category vocabulary onto the
// fixed set of categories the pipeline recognizes, and back again into
// provider-specific query parameters.
//
// Normalization is total: any non-empty input resolves to a taxonomy member,
// falling back to CategoryGeneral when nothing matches. The reverse maps are
// owned per provider and keyed by the canonical category.
package taxonomy
