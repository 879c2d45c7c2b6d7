package service

import (
	"net/http"

	"github.com/olahol/melody"
	log "github.com/sirupsen/logrus"
)

const clientBufferSize = 64

// Broadcaster fans messages out to websocket stream clients. A client that
// falls behind by more than its buffer misses messages rather than blocking
// the consolidator.
type Broadcaster struct {
	m *melody.Melody
}

func NewBroadcaster() *Broadcaster {
	m := melody.New()
	m.Config.MessageBufferSize = clientBufferSize

	m.HandleConnect(func(s *melody.Session) {
		log.Debugf("Broadcaster: stream client connected from %s", s.Request.RemoteAddr)
	})

	m.HandleDisconnect(func(s *melody.Session) {
		log.Debugf("Broadcaster: stream client disconnected from %s", s.Request.RemoteAddr)
	})

	m.HandleError(func(s *melody.Session, err error) {
		log.Warnf("Broadcaster: stream client %s: %v", s.Request.RemoteAddr, err)
	})

	return &Broadcaster{m: m}
}

// HandleRequest upgrades the request to a websocket and blocks until the
// client disconnects or the broadcaster is closed.
func (b *Broadcaster) HandleRequest(w http.ResponseWriter, r *http.Request) error {
	return b.m.HandleRequest(w, r)
}

func (b *Broadcaster) Broadcast(msg []byte) {
	if err := b.m.Broadcast(msg); err != nil {
		log.Warnf("Broadcaster: failed to broadcast: %v", err)
	}
}

func (b *Broadcaster) Len() int {
	return b.m.Len()
}

// Close disconnects every stream client. Later requests are refused.
func (b *Broadcaster) Close() error {
	return b.m.Close()
}
