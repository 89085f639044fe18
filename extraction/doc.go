// Package extraction cleans up event candidates produced by an Extractor.
//
// The Validator drops speaker entries that are not person names, reduces
// organization names to a canonical form, scrubs placeholder strings that
// stand in for missing fields, and merges duplicate candidates and duplicate
// speakers. Candidates are mutated in place.
//
// The extraction/web subpackage provides an Extractor that reads event pages
// over HTTP.
package extraction
