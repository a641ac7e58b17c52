// Package engine provides helpers for working with the modernc.org/sqlite
// driver in this module: opening databases with the pragmas the daemon
// relies on, applying per-component versioned schema migrations, and
// registering the hist_cosine / hist_l2 SQL scalar functions used for
// in-database similarity ordering.
package engine
