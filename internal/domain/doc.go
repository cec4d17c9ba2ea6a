// Package domain contains the core entities of the poster service: the poster
// request with its defaults, validation and cache identity, the coordinates
// it resolves to, and the progress and result records of a generation job.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
