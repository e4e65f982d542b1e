// Package history keeps a record of finished decision cycles in SQLite so
// operators can see what was watered, when, and what went wrong.
package history
