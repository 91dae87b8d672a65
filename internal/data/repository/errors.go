package repository

import "errors"

var (
	// ErrNotFound is returned by writes that matched no row. Reads return (nil, nil).
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned by compare-and-set writes whose guard
	// (version or expected status) no longer matches the stored record.
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicate is returned when an insert collides with a unique key,
	// e.g. a second RESERVED hold on the same seat coordinate.
	ErrDuplicate = errors.New("duplicate record")
)

type rowScanner interface {
	Scan(dest ...any) error
}
