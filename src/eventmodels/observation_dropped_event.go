package eventmodels

import "time"

// ObservationDroppedEvent reports an observation older than the last emitted
// bar. It was not folded into any bar.
type ObservationDroppedEvent struct {
	Symbol        Symbol
	Time          time.Time
	LastEmittedAt time.Time
}
