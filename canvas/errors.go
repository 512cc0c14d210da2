package canvas

import "errors"

// ErrInvalidInput is returned when a draw or query request fails validation:
// missing parameters, non-numeric coordinates, or a malformed color.
var ErrInvalidInput = errors.New("canvas: invalid input")

// ErrCanvasNotFound is returned when the referenced canvas does not exist.
var ErrCanvasNotFound = errors.New("canvas: gaban not found")

// ErrOutOfBounds is returned when a coordinate falls outside the canvas
// size. Classed with validation at the HTTP boundary.
var ErrOutOfBounds = errors.New("canvas: coordinates out of bounds")

// ErrNoChange is the benign outcome of a draw request whose color equals
// the pixel's current color. Nothing is committed, logged, or published.
var ErrNoChange = errors.New("canvas: no change")

// ErrRateLimited is returned when an identity exceeds the edit budget for
// the rolling window.
var ErrRateLimited = errors.New("canvas: rate limited")
