// Package dht implements the Kademlia-like node overlay: bootstrap
// recovery, black-list filtering, periodic persistence, bucket refresh,
// seed reconnect, and the health-filtered peer set the gossip layer fans
// out over.
package dht

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"

	"slotbft/crypto"
	"slotbft/store"
	"slotbft/types"
)

const (
	// SavePeersInterval is how often the live table is flushed to the
	// persisted node store.
	SavePeersInterval = 60 * time.Second
	// CheckBucketOutdateInterval is how often the bucket-refresh loop ticks.
	// The flat table has no buckets, so a tick only logs the table size; no
	// node is marked stale and nothing is re-queried.
	CheckBucketOutdateInterval = 180 * time.Second
	// ReconnectSeedInterval is how often bootstrap seeds absent from the
	// table are re-inserted.
	ReconnectSeedInterval = 30 * time.Second
)

// Overlay is the DHT routing table plus its lifecycle: bootstrap set,
// black list, persistence, refresh and reconnect tickers, and the single
// onBroadcast callback the transport layer above (gossip) registers,
// instead of the overlay holding any reference back into gossip or
// consensus.
type Overlay struct {
	service.BaseService

	self      types.Node
	bootstrap []types.Node
	table     *table
	store     *store.KVStore

	mtx               sync.Mutex
	onNodeAdded       func(types.Node)
	onNodeRemoved     func(types.NodeID, string)
	onBroadcast       func(payload []byte, from types.Node)
	onPublicIPChanged func(newHost string, port uint16)

	upgrader websocket.Upgrader
	server   *http.Server

	metrics *Metrics
}

func NewOverlay(self types.Node, bootstrap []types.Node, blackListHosts []string, nodeStore *store.KVStore) *Overlay {
	o := &Overlay{
		self:      self,
		bootstrap: bootstrap,
		table:     newTable(),
		store:     nodeStore,
		upgrader:  websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		metrics:   NewMetrics(),
	}
	for _, h := range blackListHosts {
		o.table.blackListHost(h)
	}
	o.BaseService = *service.NewBaseService(nil, "DHTOverlay", o)
	return o
}

func (o *Overlay) SetLogger(logger log.Logger) {
	o.Logger = logger
}

func (o *Overlay) SetOnNodeAdded(fn func(types.Node))                 { o.onNodeAdded = fn }
func (o *Overlay) SetOnNodeRemoved(fn func(types.NodeID, string))     { o.onNodeRemoved = fn }
func (o *Overlay) SetOnBroadcast(fn func(payload []byte, from types.Node)) { o.onBroadcast = fn }
func (o *Overlay) SetOnPublicIPChanged(fn func(newHost string, port uint16)) { o.onPublicIPChanged = fn }

func (o *Overlay) OnStart() error {
	if o.store != nil {
		persisted, err := o.store.All()
		if err != nil {
			o.Logger.Error("loading persisted nodes failed", "err", err)
		} else {
			for _, n := range persisted {
				o.Add(n)
			}
			o.Logger.Info("re-added persisted nodes before bootstrap", "count", len(persisted))
		}
	}

	for _, seed := range o.bootstrap {
		o.Add(seed)
	}

	go o.savePeersLoop()
	go o.bucketRefreshLoop()
	go o.reconnectSeedLoop()
	return nil
}

func (o *Overlay) OnStop() {
	if o.server != nil {
		_ = o.server.Close()
	}
}

// Add inserts or refreshes a node, excluding self and black-listed hosts.
// Errors (persistence, etc.) are logged and suppressed — the overlay never
// propagates a failure up into consensus.
func (o *Overlay) Add(n types.Node) bool {
	if n.ID == o.self.ID {
		return false
	}
	if o.table.isBlackListed(n.Host) {
		return false
	}
	n.Seen = time.Now()
	added := o.table.add(n)
	if added {
		o.metrics.NodesAdded.Inc(1)
		if o.onNodeAdded != nil {
			o.onNodeAdded(n)
		}
	}
	return added
}

func (o *Overlay) Remove(id types.NodeID, reason string) {
	if o.table.remove(id) {
		o.metrics.NodesRemoved.Inc(1)
		if o.onNodeRemoved != nil {
			o.onNodeRemoved(id, reason)
		}
	}
}

// Metrics exposes the overlay's MetricItem for registration with a
// metrics.Reporter.
func (o *Overlay) Metrics() *Metrics {
	return o.metrics
}

// HealthyNodes returns liveNodes \ blackList \ self.
func (o *Overlay) HealthyNodes() []types.Node {
	return o.table.healthy(o.self.ID)
}

func (o *Overlay) BootstrapSet() []types.Node {
	out := make([]types.Node, len(o.bootstrap))
	copy(out, o.bootstrap)
	return out
}

func (o *Overlay) Self() types.Node {
	return o.self
}

func (o *Overlay) savePeersLoop() {
	ticker := time.NewTicker(SavePeersInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.Quit():
			return
		case <-ticker.C:
			o.flushPeers()
		}
	}
}

func (o *Overlay) flushPeers() {
	if o.store == nil {
		return
	}
	for _, n := range o.table.all() {
		if err := o.store.Put(n); err != nil {
			o.metrics.PersistenceErrors.Inc(1)
			o.Logger.Error("persisting node failed", "node", n.Addr(), "err", err)
		}
	}
}

func (o *Overlay) bucketRefreshLoop() {
	ticker := time.NewTicker(CheckBucketOutdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.Quit():
			return
		case <-ticker.C:
			o.Logger.Debug("bucket refresh tick", "nodes", len(o.table.all()))
		}
	}
}

func (o *Overlay) reconnectSeedLoop() {
	ticker := time.NewTicker(ReconnectSeedInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.Quit():
			return
		case <-ticker.C:
			for _, seed := range o.bootstrap {
				if seed.ID == o.self.ID {
					continue
				}
				if !o.table.has(seed.ID) {
					o.Add(seed)
				}
			}
		}
	}
}

// RandomHealthyPeers returns up to n distinct peers from HealthyNodes,
// falling back to the bootstrap set when the healthy set is empty.
func (o *Overlay) RandomHealthyPeers(n int) []types.Node {
	pool := o.HealthyNodes()
	if len(pool) == 0 {
		pool = o.BootstrapSet()
	}
	if len(pool) <= n {
		return pool
	}
	shuffled := make([]types.Node, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}

// UpdateSelfHost updates the overlay's advertised host when a bootstrap
// peer's self-IP discovery response disagrees with the current one. The
// node id is deliberately not recomputed here: an id already published to
// peers under the old address stays valid, at the cost of one stale entry
// in peers' tables until the normal health filter prunes it.
func (o *Overlay) UpdateSelfHost(newHost string) bool {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	if newHost == "" || newHost == o.self.Host {
		return false
	}
	oldHost := o.self.Host
	o.self.Host = newHost
	o.metrics.PublicIPChanges.Inc(1)
	if o.Logger != nil {
		o.Logger.Info("publicIpChanged", "old", oldHost, "new", newHost, "port", o.self.Port, "authoritative", true)
	}
	if o.onPublicIPChanged != nil {
		o.onPublicIPChanged(newHost, o.self.Port)
	}
	return true
}

// NewNode builds a types.Node from a host:port pair, computing its
// canonical RIPEMD-160 id.
func NewNode(host string, port uint16) types.Node {
	return types.Node{ID: crypto.NodeID(host, port), Host: host, Port: port, Seen: time.Now()}
}
