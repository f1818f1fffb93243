package main

import (
	"sync"

	"github.com/ilpconnector/core/peer"
)

// peerRegistry tracks the live peer.Handle for every currently connected
// peer, keyed by peerId. Connections come and go independently of the
// static settlement configuration loaded at startup.
type peerRegistry struct {
	mu      sync.RWMutex
	handles map[string]peer.Handle
}

func newPeerRegistry() *peerRegistry {
	return &peerRegistry{handles: make(map[string]peer.Handle)}
}

func (r *peerRegistry) register(peerID string, h peer.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[peerID] = h
}

func (r *peerRegistry) unregister(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, peerID)
}

func (r *peerRegistry) get(peerID string) (peer.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[peerID]
	return h, ok
}
