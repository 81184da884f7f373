// Package core provides the data pipeline behind the project viewer.
//
// Everything here is independent of HTTP: the web handlers and the
// projview CLI both drive the same functions.
//
// # Pipeline
//
//	Input ──Decode──▶ jsonval.Value ──Extract──▶ records
//	records ──LoadSources──▶ Collection (source order, per-source reports)
//	Collection ──NewSession──▶ Table (Flatten), Labels, Classification, SearchIndex
//	Session ──Project──▶ ProjectView (key/value table, similar-project tables)
//	Session ──Filter──▶ Table ──Export──▶ CSV or XLSX
//
// # Sources
//
// A source named *.gz is gunzipped first. Sources must be UTF-8 JSON holding
// either {"projects": [...]} or a bare [...]. A failing source is reported
// and skipped; only a load with no records at all fails, with
// [ErrEmptyCollection].
//
// # Flattening
//
// Nested objects become dotted columns ("owner.name"); arrays stay whole.
// When a collection cannot be flattened (non-object records, colliding
// paths, runaway nesting) the table falls back to top-level keys and
// [Table.Shallow] is set.
//
// # Sessions
//
// A [Session] is immutable. Loading builds a new one and [SessionStore.Put]
// swaps it in, so readers never need a lock. Idle sessions are evicted by
// [SessionStore.StartSweeper].
//
// # Error Handling
//
// Technical errors are mapped to coded user messages by [MapError]:
//
//   - DEC001-DEC003: gzip, UTF-8 and JSON decode failures
//   - FETCH001-FETCH003: remote source failures
//   - SHAPE001, SEL001: no record list, unknown project
//   - LOAD001-LOAD002, FILE001/FILE004, UPL002/UPL004/UPL005: load failures
//   - FLT001-FLT002: bad filters
package core
