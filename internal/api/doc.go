// Package api serves the poster HTTP API: job submission, job status,
// theme listing and poster downloads. Handlers translate HTTP concerns to
// calls on the poster service and map its errors to status codes.
package api
