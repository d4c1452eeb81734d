package dht

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"slotbft/types"
)

func TestAddExcludesSelf(t *testing.T) {
	self := node(1, "10.0.0.1")
	o := NewOverlay(self, nil, nil, nil)
	assert.False(t, o.Add(self))
	assert.Len(t, o.HealthyNodes(), 0)
}

func TestAddExcludesBlackListedHost(t *testing.T) {
	self := node(1, "10.0.0.1")
	o := NewOverlay(self, nil, []string{"10.0.0.2"}, nil)
	assert.False(t, o.Add(node(2, "10.0.0.2")))
}

func TestAddAcceptsHealthyNode(t *testing.T) {
	self := node(1, "10.0.0.1")
	o := NewOverlay(self, nil, nil, nil)
	peer := node(2, "10.0.0.2")
	assert.True(t, o.Add(peer))
	assert.Len(t, o.HealthyNodes(), 1)
}

func TestAddFiresOnNodeAddedCallback(t *testing.T) {
	self := node(1, "10.0.0.1")
	o := NewOverlay(self, nil, nil, nil)

	var captured types.Node
	o.SetOnNodeAdded(func(n types.Node) { captured = n })

	peer := node(2, "10.0.0.2")
	o.Add(peer)
	assert.Equal(t, peer.ID, captured.ID)
}

func TestUpdateSelfHostChangesAdvertisedAddressNotID(t *testing.T) {
	self := node(1, "10.0.0.1")
	o := NewOverlay(self, nil, nil, nil)

	var newHost string
	var newPort uint16
	o.SetOnPublicIPChanged(func(h string, p uint16) { newHost, newPort = h, p })

	changed := o.UpdateSelfHost("203.0.113.9")
	assert.True(t, changed)
	assert.Equal(t, "203.0.113.9", o.Self().Host)
	assert.Equal(t, self.ID, o.Self().ID)
	assert.Equal(t, "203.0.113.9", newHost)
	assert.Equal(t, self.Port, newPort)
}

func TestUpdateSelfHostNoopWhenUnchanged(t *testing.T) {
	self := node(1, "10.0.0.1")
	o := NewOverlay(self, nil, nil, nil)
	assert.False(t, o.UpdateSelfHost("10.0.0.1"))
	assert.False(t, o.UpdateSelfHost(""))
}

func TestRandomHealthyPeersFallsBackToBootstrap(t *testing.T) {
	self := node(1, "10.0.0.1")
	seed := node(2, "10.0.0.2")
	o := NewOverlay(self, []types.Node{seed}, nil, nil)

	peers := o.RandomHealthyPeers(5)
	assert.Len(t, peers, 1)
	assert.Equal(t, seed.ID, peers[0].ID)
}

func TestRandomHealthyPeersCapsAtRequestedCount(t *testing.T) {
	self := node(1, "10.0.0.1")
	o := NewOverlay(self, nil, nil, nil)
	for i := byte(2); i < 10; i++ {
		o.Add(node(i, "10.0.0.1"+string(rune(i))))
	}
	peers := o.RandomHealthyPeers(3)
	assert.LessOrEqual(t, len(peers), 3)
}
