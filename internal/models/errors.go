package models

import "errors"

var (
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidBar       = errors.New("invalid bar (high < low)")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidTrend     = errors.New("invalid trend model")
)
