package consolidator

import "time"

// Observation is anything with a start time and an end time. Observations
// without a span return the same value from both.
type Observation interface {
	GetTime() time.Time
	GetEndTime() time.Time
}

// Record is the working bar a consolidator accumulates into. R is the
// concrete pointer type, so Clone can return it without a type assertion.
type Record[R any] interface {
	Observation
	SetEndTime(t time.Time)
	Clone() R
}

// Aggregator folds observations into a working record.
//
// Start builds a new record whose start time is start. It must not keep any
// reference to obs. Merge folds obs into working and returns the result; the
// consolidator owns working and discards its old value.
type Aggregator[O Observation, R Record[R]] interface {
	Start(obs O, start time.Time) R
	Merge(working R, obs O) R
}

// Listener receives consolidated bars synchronously, on the goroutine that
// triggered the emission.
type Listener[R any] func(event BarConsolidatedEvent[R])
