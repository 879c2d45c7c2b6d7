package eventpubsub

const (
	QuoteBarConsolidatedEvent = "QuoteBarConsolidatedEvent"
	TradeBarConsolidatedEvent = "TradeBarConsolidatedEvent"
	ObservationDroppedEvent   = "ObservationDroppedEvent"
)
