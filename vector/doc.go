// Package vector provides the numeric primitives shared by the ranking and
// storage layers: cosine similarity (raw and remapped to the unit interval),
// Euclidean distance, and the BLOB encoding used to persist embeddings in
// SQLite. The similarity helpers are total functions: malformed input
// (mismatched dimensions, zero magnitude) yields a neutral value rather than
// an error, so one bad record never aborts a whole ranking pass.
package vector
