package models

import "errors"

// Pipeline errors. Callers wrap them with context and match with errors.Is.
var (
	// ErrNoDateColumnFound is returned when no column parses as dates often enough.
	ErrNoDateColumnFound = errors.New("no date column found")

	// ErrInsufficientData is returned when a series is shorter than two seasonal periods.
	ErrInsufficientData = errors.New("insufficient data for decomposition")

	// ErrLengthMismatch is returned when aligned sequences differ in length.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrEmptySequence is returned when a distance input has no elements.
	ErrEmptySequence = errors.New("empty sequence")

	// ErrInvalidNeighborCount is returned when the requested neighbor count is not positive.
	ErrInvalidNeighborCount = errors.New("invalid neighbor count")

	// ErrEmptyCandidateSet is returned when there is nothing to rank against.
	ErrEmptyCandidateSet = errors.New("empty candidate set")

	// ErrInvalidPeriod is returned for a seasonal period below 2.
	ErrInvalidPeriod = errors.New("invalid seasonal period")

	// ErrUnknownColumn is returned when a requested column is not in the table.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrEmptySeries is returned when no row of a table yields a point.
	ErrEmptySeries = errors.New("empty series")

	// ErrInvalidSeriesName is returned when a series is saved without a name.
	ErrInvalidSeriesName = errors.New("invalid series name")

	// ErrSeriesNotFound is returned by stores for unknown series names.
	ErrSeriesNotFound = errors.New("series not found")
)
