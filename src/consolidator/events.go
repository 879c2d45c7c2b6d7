package consolidator

import (
	"time"

	"github.com/google/uuid"
)

type BarConsolidatedEvent[R any] struct {
	ID        uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Bar       R
}

type subscription[R any] struct {
	id       uuid.UUID
	listener Listener[R]
}
