package domain

import "errors"

var (
	// ErrMeterNotFound is returned by registry lookups that match no row.
	ErrMeterNotFound = errors.New("meter not found")
	// ErrMeterExists is returned when a registry insert lost a race with a
	// concurrent insert of the same name.
	ErrMeterExists = errors.New("meter already exists")
	// ErrInvalidMeterName is returned for names the registry cannot store.
	ErrInvalidMeterName = errors.New("invalid meter name")
)
