// Package middleware wraps a DiagramStore with behaviour applied to every
// snapshot on its way in or out.
package middleware

import "github.com/aretw0/espalier/pkg/ports"

// Middleware allows wrapping a DiagramStore to add behavior.
type Middleware func(ports.DiagramStore) ports.DiagramStore

// Chain applies mws so that the first one sees calls first.
func Chain(store ports.DiagramStore, mws ...Middleware) ports.DiagramStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
