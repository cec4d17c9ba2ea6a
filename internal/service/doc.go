// Package service holds the poster use cases.
//
// Generator runs the generation pipeline for one request: it geocodes the
// place, loads and customises the theme, fetches the OSM layers, renders the
// poster and stores the file, reporting progress in percent along the way.
// Generator is synchronous; the command line tool calls it directly.
//
// PosterService is the asynchronous front used by the HTTP API. Submit
// validates a request and emits a PosterRequested event; the task package
// turns the event into a queued job whose ID is the event ID. GetTask merges
// the durable job record with live progress into the view returned to
// clients.
//
// Error handling follows the same rules throughout:
//   - domain sentinels (ErrValidation, ErrPlaceNotFound, ErrNoMapData, ...)
//     are returned as they are so callers can test them with errors.Is
//   - anything else is wrapped in a PosterServiceError naming the operation
package service
