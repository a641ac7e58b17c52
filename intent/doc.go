// Package intent classifies free-text queries against a static table of
// search intents (entertainment, shopping, news, recipes, tech, learning).
// Each intent carries keywords and a set of associated hostnames; the ranking
// layer uses detected intents to boost candidates from matching domains.
// Analysis is pure: no I/O, deterministic for a given intent table.
package intent
