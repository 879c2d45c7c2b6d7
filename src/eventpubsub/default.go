package eventpubsub

import (
	"fmt"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"
)

// Bus fans consolidated bars out to the sinks of a process. Synchronous
// subscribers run on the publishing goroutine, in subscription order.
type Bus struct {
	bus EventBus.Bus
}

func NewBus() *Bus {
	return &Bus{
		bus: EventBus.New(),
	}
}

func (b *Bus) Publish(topic string, event interface{}) {
	b.bus.Publish(topic, event)
}

func (b *Bus) Subscribe(topic string, callbackFn interface{}) error {
	if err := b.bus.Subscribe(topic, callbackFn); err != nil {
		return fmt.Errorf("Bus.Subscribe: %s: %w", topic, err)
	}

	log.Debugf("Subscribed to topic %s", topic)
	return nil
}

// SubscribeAsync runs callbackFn on its own goroutine for every event.
// Callbacks for one topic are serialized.
func (b *Bus) SubscribeAsync(topic string, callbackFn interface{}) error {
	if err := b.bus.SubscribeAsync(topic, callbackFn, true); err != nil {
		return fmt.Errorf("Bus.SubscribeAsync: %s: %w", topic, err)
	}

	log.Debugf("Subscribed async to topic %s", topic)
	return nil
}

// WaitAsync blocks until every async callback has returned.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}

func (b *Bus) HasSubscribers(topic string) bool {
	return b.bus.HasCallback(topic)
}
