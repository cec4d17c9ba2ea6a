// Package postgres provides the PostgreSQL implementation of task.TaskStore,
// the embedded goose migrations that create its schema, and the mapping
// from PostgreSQL error codes to the sentinel errors in internal/store.
package postgres
