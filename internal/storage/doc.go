// Package storage persists finished runs: their metadata (physics, metrics)
// and their step history. Two backends implement [Store]: a directory per run
// ([FileStore]) and a single SQLite database ([SQLiteStore]).
package storage
