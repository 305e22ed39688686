// Package extract recovers structured event fields from free text.
//
// Search-derived providers return titles and snippets rather than structured
// event objects, so dates and venues have to be pulled out heuristically.
// Each heuristic is a pure function over (text, now); they are chained in a
// fixed order with first-match-wins semantics. A failed extraction degrades
// the field to absent or a sentinel, never to an error.
package extract
