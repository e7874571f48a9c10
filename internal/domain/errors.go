package domain

import "errors"

var (
	// ErrInvalidRequest marks a request that failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnknownLocation is returned when the geocoder fails for a coordinate.
	ErrUnknownLocation = errors.New("location not found or invalid coordinates")

	// ErrNoData is returned by upstream sources that answered but had nothing
	// usable for the coordinate.
	ErrNoData = errors.New("no data for coordinate")
)
