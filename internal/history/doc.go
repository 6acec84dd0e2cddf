// Package history persists finished transcripts to a local SQLite
// database so past dictations can be listed and pruned by age.
package history
