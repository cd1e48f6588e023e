// Package labreport turns the text dump of a LABEXIA or LABE-Carrefour
// laboratory report into a header map and a table of analysis rows.
//
// The pipeline is Normalize -> Segment -> {ExtractHeader, ExtractRows}, with
// the report family selecting the markers, header labels and row schema.
// Every function in this package is pure: no I/O, no logging, no shared
// mutable state. Compiled rule tables are built once at init and only read
// afterwards, so concurrent extractions need no coordination.
package labreport
