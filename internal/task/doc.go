// Package task queues poster generation jobs and runs them in the background.
//
// A job is persisted through a TaskStore before it is queued, so it survives a
// restart: on Start the runner puts interrupted jobs back to pending and
// rebuilds every pending job through a TaskRecoverer. Live progress is kept
// apart from the durable record in a ProgressStore, since it changes several
// times per job and only matters while the job is running.
package task
