package store

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/tendermint/tendermint/libs/log"
	tmdb "github.com/tendermint/tm-db"
	leveldb "github.com/tendermint/tm-db/goleveldb"

	"slotbft/types"
)

// NewKVStore opens (or creates) a goleveldb-backed node store at dir/name.
func NewKVStore(name, dir string, logger log.Logger) (*KVStore, error) {
	levelDB, err := leveldb.NewDB(name, dir)
	if err != nil {
		return nil, errors.Wrap(err, "opening node store")
	}
	return NewKVStoreWithDB(levelDB, logger), nil
}

func NewKVStoreWithDB(kvdb tmdb.DB, logger log.Logger) *KVStore {
	return &KVStore{kvDB: kvdb, logger: logger}
}

// KVStore is the DHT overlay's persisted node document store: a unique
// index on id. seen is stored in each record but is not indexed and plays
// no part in compaction. The consensus state
// machine never touches this — the DHT is its single writer.
type KVStore struct {
	mtx    sync.Mutex
	kvDB   tmdb.DB
	logger log.Logger
}

// Put upserts a Node keyed by its canonical id, enforcing the unique
// index on id by construction (the key itself is the id).
func (kv *KVStore) Put(n types.Node) error {
	kv.mtx.Lock()
	defer kv.mtx.Unlock()

	val, err := encodeNode(n)
	if err != nil {
		return errors.Wrap(err, "encoding node")
	}
	if err := kv.kvDB.Set(nodeKey(n.ID), val); err != nil {
		return errors.Wrap(err, "persisting node")
	}
	return nil
}

// Get looks up a single node by id.
func (kv *KVStore) Get(id types.NodeID) (types.Node, bool, error) {
	kv.mtx.Lock()
	defer kv.mtx.Unlock()

	val, err := kv.kvDB.Get(nodeKey(id))
	if err != nil {
		return types.Node{}, false, errors.Wrap(err, "reading node")
	}
	if val == nil {
		return types.Node{}, false, nil
	}
	n, err := decodeNode(val)
	if err != nil {
		return types.Node{}, false, errors.Wrap(err, "decoding node")
	}
	return n, true, nil
}

// Delete removes a node by id.
func (kv *KVStore) Delete(id types.NodeID) error {
	kv.mtx.Lock()
	defer kv.mtx.Unlock()
	return errors.Wrap(kv.kvDB.Delete(nodeKey(id)), "deleting node")
}

// All returns every persisted node, used at startup to re-add the table
// before bootstrap completes.
func (kv *KVStore) All() ([]types.Node, error) {
	kv.mtx.Lock()
	defer kv.mtx.Unlock()

	iter, err := kv.kvDB.Iterator(nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "iterating node store")
	}
	defer iter.Close()

	var nodes []types.Node
	for ; iter.Valid(); iter.Next() {
		n, err := decodeNode(iter.Value())
		if err != nil {
			kv.logger.Error("skipping corrupt node record", "err", err)
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Compact runs a full-range compaction; callers invoke this every 60
// seconds per the persisted node store's external contract.
func (kv *KVStore) Compact() error {
	kv.mtx.Lock()
	defer kv.mtx.Unlock()
	gdb, ok := kv.kvDB.(*leveldb.GoLevelDB)
	if !ok {
		return nil
	}
	return errors.Wrap(gdb.DB().CompactRange(util.Range{}), "compacting node store")
}

// CompactEvery runs Compact on a periodic ticker until stop is closed.
func (kv *KVStore) CompactEvery(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := kv.Compact(); err != nil {
				kv.logger.Error("periodic compaction failed", "err", err)
			}
		}
	}
}

func (kv *KVStore) GetDB() tmdb.DB {
	return kv.kvDB
}

func (kv *KVStore) Close() error {
	return kv.kvDB.Close()
}

func nodeKey(id types.NodeID) []byte {
	return append([]byte("node/"), id[:]...)
}

// encodeNode writes {id, host, port, seen} as a flat binary record: 20-byte
// id, 2-byte port, 8-byte unix seen, then the host string.
func encodeNode(n types.Node) ([]byte, error) {
	buf := make([]byte, types.NodeIDSize+2+8+len(n.Host))
	copy(buf[0:20], n.ID[:])
	binary.BigEndian.PutUint16(buf[20:22], n.Port)
	binary.BigEndian.PutUint64(buf[22:30], uint64(n.Seen.Unix()))
	copy(buf[30:], n.Host)
	return buf, nil
}

func decodeNode(val []byte) (types.Node, error) {
	if len(val) < types.NodeIDSize+2+8 {
		return types.Node{}, errors.New("node record too short")
	}
	var n types.Node
	copy(n.ID[:], val[0:20])
	n.Port = binary.BigEndian.Uint16(val[20:22])
	n.Seen = time.Unix(int64(binary.BigEndian.Uint64(val[22:30])), 0)
	n.Host = string(val[30:])
	return n, nil
}
