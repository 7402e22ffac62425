package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRateLimited         = errors.New("rate limited")
	ErrParse               = errors.New("malformed opportunity record")
	ErrUnsupportedRaceType = errors.New("unsupported race type")
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrBookmakerNotFound   = errors.New("bookmaker not found")
)
