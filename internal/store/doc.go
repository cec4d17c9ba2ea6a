// Package store holds the persistence primitives shared by the durable
// task store: the DBTX abstraction over *sql.DB and *sql.Tx, and the
// sentinel errors that storage backends wrap.
package store
