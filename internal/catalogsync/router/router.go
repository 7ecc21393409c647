// Package router interprets inbound sync protocol messages and applies them
// to the catalog store. The transition function Apply is pure so it can be
// unit tested without a transport or persistence; Router is the thin driver
// that decodes frames and commits transitions.
package router

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/apigrid/catalogsync/internal/catalogsync/store"
	"github.com/apigrid/catalogsync/pkg/api"
)

// Router applies decoded sync messages to a store. One router serves one
// store instance; construct one per engine.
type Router struct {
	store  *store.Store
	logger zerolog.Logger
}

// New creates a router bound to the given store.
func New(st *store.Store) *Router {
	return &Router{
		store:  st,
		logger: log.With().Str("component", "sync-router").Logger(),
	}
}

// HandleFrame decodes one raw frame and applies it. A frame that fails to
// decode is dropped and logged; decode failure is a protocol anomaly, not a
// transport failure, and never tears state down.
func (r *Router) HandleFrame(frame []byte) {
	msg, err := DecodeMessage(frame)
	if err != nil {
		r.logger.Warn().Err(err).Msg("dropping undecodable sync frame")
		return
	}
	r.HandleMessage(msg)
}

// HandleMessage applies one decoded sync message as a store commit.
func (r *Router) HandleMessage(msg api.SyncMessage) {
	r.logger.Debug().
		Str("type", string(msg.Type)).
		Str("resource_type", string(msg.ResourceType)).
		Str("resource_id", msg.ResourceID).
		Msg("applying sync message")
	r.store.Update(func(st store.State) store.State {
		return Apply(st, msg)
	})
}
