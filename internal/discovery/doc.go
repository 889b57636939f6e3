// Package discovery implements the weekly mix assembly engine.
//
// A mix is built from three sourcing slots executed in fixed order: AI-recommended
// search queries, shuffled familiar anchors from the listener's own recent tracks,
// and genre/artist fallback searches. Each slot appends to one shared list under a
// cumulative length ceiling, so a productive early slot leaves less room for
// later ones. Every upstream call may fail independently; failures shrink the mix
// but never abort the run.
//
// The package also provides the artist-spread reorderer, which permutes a finished
// mix so adjacent tracks avoid sharing a primary artist.
package discovery
