package consolidator

import "errors"

var (
	ErrUnknownTimezone       = errors.New("unknown timezone")
	ErrInvalidCloseTimeOfDay = errors.New("close time of day must be within [00:00:00, 24:00:00)")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrInvalidCrossingField  = errors.New("invalid crossing field")
)
