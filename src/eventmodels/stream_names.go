package eventmodels

type StreamName string

const (
	ConsolidatedBarsStream StreamName = "consolidated-bars"
)
