// Package gossip implements topic-based publish/subscribe over the DHT
// overlay: random-peer fanout on publish, topic dispatch on receipt. It
// owns the DHT and exposes only a subscription registry upward, so
// consensus never holds a reference into the transport that carries its
// own messages — inverting what would otherwise be a cyclic dependency
// between consensus, gossip, and the DHT.
package gossip

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	jsoniter "github.com/json-iterator/go"
	"github.com/tendermint/tendermint/libs/log"

	"slotbft/crypto"
	"slotbft/p2p/dht"
	"slotbft/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxFanout is the number of random healthy peers a publish hands a
// message to.
const maxFanout = 20

// recentSeenCacheSize bounds the advisory dedup cache used to avoid
// re-relaying a message this node has already forwarded. Idempotence
// itself comes from content (vote/propose keys), not from this cache —
// the cache only saves redundant network hops.
const recentSeenCacheSize = 4096

// Message is the wire envelope gossiped over the DHT.
type Message struct {
	Topic     string `json:"topic"`
	Recursive uint8  `json:"recursive"`
	Payload   []byte `json:"payload"`
}

// Handler is invoked once per received message on a subscribed topic.
type Handler func(msg Message, from types.Node)

// Layer is the gossip pub/sub layer sitting on top of a dht.Overlay.
type Layer struct {
	overlay *dht.Overlay
	logger  log.Logger

	mtx  sync.RWMutex
	subs map[string][]Handler

	seen *lru.Cache
}

func NewLayer(overlay *dht.Overlay) *Layer {
	cache, _ := lru.New(recentSeenCacheSize)
	l := &Layer{
		overlay: overlay,
		subs:    make(map[string][]Handler),
		seen:    cache,
	}
	overlay.SetOnBroadcast(l.onReceive)
	return l
}

func (l *Layer) SetLogger(logger log.Logger) {
	l.logger = logger
}

// Subscribe registers handler for topic. Unknown topics (no subscriber)
// are dropped silently on receipt.
func (l *Layer) Subscribe(topic string, handler Handler) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.subs[topic] = append(l.subs[topic], handler)
}

// Publish fans msg out to up to 20 random healthy peers (falling back to
// the bootstrap set if the healthy set is empty), then returns. There is
// no delivery acknowledgement and no ordering guarantee across peers.
func (l *Layer) Publish(topic string, payload []byte, recursive uint8) {
	msg := Message{Topic: topic, Recursive: recursive, Payload: payload}
	l.fanout(msg, types.Node{})
}

func (l *Layer) fanout(msg Message, from types.Node) {
	wire, err := json.Marshal(msg)
	if err != nil {
		if l.logger != nil {
			l.logger.Error("encoding gossip message failed", "err", err)
		}
		return
	}

	peers := l.overlay.RandomHealthyPeers(maxFanout)
	for _, peer := range peers {
		if peer.Addr() == from.Addr() && from.Addr() != "" {
			continue
		}
		go func(p types.Node) {
			if err := l.overlay.SendTo(p, wire); err != nil && l.logger != nil {
				l.logger.Debug("gossip send failed", "peer", p.Addr(), "err", err)
			}
		}(peer)
	}
}

// onReceive is the DHT's single callback into the gossip layer. It decodes
// the envelope, dispatches to subscribers of msg.Topic, and relays one hop
// further if msg.Recursive is still positive.
func (l *Layer) onReceive(payload []byte, from types.Node) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		if l.logger != nil {
			l.logger.Debug("dropping malformed gossip payload", "err", err)
		}
		return
	}

	key := dedupeKey(msg)
	if l.seen != nil {
		if _, dup := l.seen.Get(key); dup {
			return
		}
		l.seen.Add(key, struct{}{})
	}

	l.mtx.RLock()
	handlers := l.subs[msg.Topic]
	l.mtx.RUnlock()

	for _, h := range handlers {
		h(msg, from)
	}

	if msg.Recursive > 0 {
		msg.Recursive--
		l.fanout(msg, from)
	}
}

func dedupeKey(msg Message) string {
	sum := crypto.Sha256(append([]byte(msg.Topic), msg.Payload...))
	return string(sum)
}
