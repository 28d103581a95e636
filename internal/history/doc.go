// Package history persists the outcome of search runs -- the initial and
// final state labels, the environment kind used, and the full commit log
// produced by Search -- to a SQLite database, so a later "machetli history"
// invocation can report on prior runs without rerunning the search.
package history
