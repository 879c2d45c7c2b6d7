package eventpubsub

import (
	"github.com/jiaming2012/daily-consolidator/src/consolidator"
)

// PublishTo returns a consolidator listener that republishes every event on
// topic. Subscribers of topic must accept consolidator.BarConsolidatedEvent[R]
// exactly.
func PublishTo[R any](b *Bus, topic string) consolidator.Listener[R] {
	return func(event consolidator.BarConsolidatedEvent[R]) {
		b.Publish(topic, event)
	}
}
