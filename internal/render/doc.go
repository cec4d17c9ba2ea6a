// Package render composes a themed poster from fetched map data.
//
// Geometries are projected to local metres around the poster center,
// culled against the crop box with an R-tree, clipped and drawn in layer
// order onto a tdewolff/canvas canvas. Canvas units are millimetres with
// the y axis pointing up, which matches the projected north-up metres.
package render
