package gossip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendermint/tendermint/libs/log"

	"slotbft/p2p/dht"
	"slotbft/types"
)

func selfNode() types.Node {
	var n types.Node
	n.ID[0] = 1
	n.Host = "10.0.0.1"
	n.Port = 9000
	return n
}

func TestSubscribeDispatchesOnReceive(t *testing.T) {
	overlay := dht.NewOverlay(selfNode(), nil, nil, nil)
	layer := NewLayer(overlay)
	layer.SetLogger(log.TestingLogger())

	received := make(chan Message, 1)
	layer.Subscribe("propose", func(msg Message, from types.Node) {
		received <- msg
	})

	wire, err := json.Marshal(Message{Topic: "propose", Payload: []byte("hello")})
	assert.NoError(t, err)

	layer.onReceive(wire, types.Node{})

	select {
	case msg := <-received:
		assert.Equal(t, []byte("hello"), msg.Payload)
	default:
		t.Fatal("expected handler to be invoked")
	}
}

func TestOnReceiveDedupesIdenticalPayloads(t *testing.T) {
	overlay := dht.NewOverlay(selfNode(), nil, nil, nil)
	layer := NewLayer(overlay)
	layer.SetLogger(log.TestingLogger())

	count := 0
	layer.Subscribe("votes", func(msg Message, from types.Node) {
		count++
	})

	wire, err := json.Marshal(Message{Topic: "votes", Payload: []byte("dup")})
	assert.NoError(t, err)

	layer.onReceive(wire, types.Node{})
	layer.onReceive(wire, types.Node{})

	assert.Equal(t, 1, count)
}

func TestOnReceiveDropsMalformedPayload(t *testing.T) {
	overlay := dht.NewOverlay(selfNode(), nil, nil, nil)
	layer := NewLayer(overlay)
	layer.SetLogger(log.TestingLogger())

	called := false
	layer.Subscribe("propose", func(msg Message, from types.Node) {
		called = true
	})

	layer.onReceive([]byte("not json"), types.Node{})
	assert.False(t, called)
}

func TestUnknownTopicIsDroppedSilently(t *testing.T) {
	overlay := dht.NewOverlay(selfNode(), nil, nil, nil)
	layer := NewLayer(overlay)
	layer.SetLogger(log.TestingLogger())

	wire, err := json.Marshal(Message{Topic: "unsubscribed", Payload: []byte("x")})
	assert.NoError(t, err)

	assert.NotPanics(t, func() { layer.onReceive(wire, types.Node{}) })
}
