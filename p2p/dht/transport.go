package dht

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"slotbft/types"
)

// dialTimeout bounds how long a one-hop fanout send may block on the
// underlying websocket handshake.
const dialTimeout = 3 * time.Second

// SendTo opens a short-lived websocket connection to peer and writes
// payload as a single binary message. Failures are returned to the caller
// (the gossip layer), which treats them as an advisory per-peer send
// failure — a dead peer among 20 fanout targets never aborts the publish.
func (o *Overlay) SendTo(peer types.Node, payload []byte) error {
	url := fmt.Sprintf("ws://%s/gossip", peer.Addr())
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return err
	}
	return nil
}

// Listen starts the inbound websocket server that receives gossip fanout
// from peers and hands each payload to onBroadcast.
func (o *Overlay) Listen(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/gossip", o.handleInbound)
	o.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := o.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			o.Logger.Error("dht listener stopped", "err", err)
		}
	}()
	return nil
}

func (o *Overlay) handleInbound(w http.ResponseWriter, r *http.Request) {
	conn, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		o.Logger.Debug("gossip upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	host, _, _ := splitHost(r.RemoteAddr)
	if o.table.isBlackListed(host) {
		return
	}

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		if o.onBroadcast != nil {
			o.onBroadcast(payload, types.Node{Host: host})
		}
	}
}

func splitHost(remoteAddr string) (string, string, error) {
	for i := len(remoteAddr) - 1; i >= 0; i-- {
		if remoteAddr[i] == ':' {
			return remoteAddr[:i], remoteAddr[i+1:], nil
		}
	}
	return remoteAddr, "", nil
}
