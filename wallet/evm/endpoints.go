package evm

import "sync"

// Endpoints manages the RPC endpoints registered per chain id. Chain
// switching re-dials the endpoint registered for the target chain.
type Endpoints struct {
	urls      map[int64]string
	urlsMutex sync.RWMutex
}

// NewEndpoints creates an endpoint registry from an initial mapping.
//
// Parameters:
// - urls: RPC URLs keyed by chain id, may be nil.
//
// Returns:
// - *Endpoints: the new registry instance.
func NewEndpoints(urls map[int64]string) *Endpoints {
	registry := make(map[int64]string, len(urls))
	for chainID, url := range urls {
		registry[chainID] = url
	}
	return &Endpoints{urls: registry}
}

// Add registers an RPC endpoint for a chain id.
func (e *Endpoints) Add(chainID int64, url string) {
	e.urlsMutex.Lock()
	e.urls[chainID] = url
	e.urlsMutex.Unlock()
}

// Get returns the RPC endpoint for a chain id, empty if unregistered.
func (e *Endpoints) Get(chainID int64) string {
	e.urlsMutex.RLock()
	url := e.urls[chainID]
	e.urlsMutex.RUnlock()
	return url
}

// Remove unregisters the RPC endpoint for a chain id.
func (e *Endpoints) Remove(chainID int64) {
	e.urlsMutex.Lock()
	delete(e.urls, chainID)
	e.urlsMutex.Unlock()
}
