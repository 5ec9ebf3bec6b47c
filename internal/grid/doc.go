// Package grid maps between sparse stored cell records and the dense matrix
// rendered to the user.
//
// The address space is fixed at MaxRows × MaxCols. Row and column
// identifiers of the form "R-<n>" and "C-<n>" are parsed exactly once, at
// the boundary, into a Coord; nothing deeper in the pipeline re-parses
// strings.
package grid
