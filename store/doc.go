// Package store persists indexed pages in SQLite. It owns the pages table:
// inserts confirm only after commit, capacity is enforced by pruning the
// oldest pages, and similarity lookups run in-database through the
// hist_cosine scalar function.
package store
