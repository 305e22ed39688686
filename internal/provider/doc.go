// Package provider defines the adapter contract every upstream event source
// implements: one SearchEvents operation that never fails out-of-band and a
// health probe that exercises a minimal real query.
//
// Concrete adapters live in the subpackages (serpapi, exa, perplexity,
// predicthq, ticketmaster, venues). Each one owns its timeout, its upstream wire format
// and its failure handling; the rest of the pipeline only ever sees
// canonical events and ProviderResults.
package provider
