package services

import "errors"

// ErrNoYears is returned by multi-year fetches given an empty year list.
var ErrNoYears = errors.New("no years requested")
