package store

import (
	"github.com/apigrid/catalogsync/pkg/api"
)

// Projection helpers shared by the store's local-edit operations and the
// sync message state machine. Upserts replace in place to preserve list
// order; removals are no-ops when the id is absent.

// UpsertEndpoint replaces the endpoint with a matching id, or appends the
// endpoint when no match exists.
func UpsertEndpoint(list []api.Endpoint, ep api.Endpoint) []api.Endpoint {
	for i := range list {
		if list[i].ID == ep.ID {
			list[i] = ep
			return list
		}
	}
	return append(list, ep)
}

// RemoveEndpoint removes the endpoint with the given id, preserving order.
func RemoveEndpoint(list []api.Endpoint, id string) []api.Endpoint {
	for i := range list {
		if list[i].ID == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// FindEndpoint returns the endpoint with the given id, if present.
func FindEndpoint(list []api.Endpoint, id string) (api.Endpoint, bool) {
	for i := range list {
		if list[i].ID == id {
			return list[i], true
		}
	}
	return api.Endpoint{}, false
}

// UpsertConnection replaces the connection with a matching id, or appends
// the connection when no match exists.
func UpsertConnection(list []api.Connection, cn api.Connection) []api.Connection {
	for i := range list {
		if list[i].ID == cn.ID {
			list[i] = cn
			return list
		}
	}
	return append(list, cn)
}

// RemoveConnection removes the connection with the given id, preserving order.
func RemoveConnection(list []api.Connection, id string) []api.Connection {
	for i := range list {
		if list[i].ID == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// FindConnection returns the connection with the given id, if present.
func FindConnection(list []api.Connection, id string) (api.Connection, bool) {
	for i := range list {
		if list[i].ID == id {
			return list[i], true
		}
	}
	return api.Connection{}, false
}

// UpsertVersion replaces the version with a matching id, or appends the
// version when no match exists.
func UpsertVersion(list []api.CatalogVersion, v api.CatalogVersion) []api.CatalogVersion {
	for i := range list {
		if list[i].ID == v.ID {
			list[i] = v
			return list
		}
	}
	return append(list, v)
}

// RemoveVersion removes the version with the given id, preserving order.
func RemoveVersion(list []api.CatalogVersion, id string) []api.CatalogVersion {
	for i := range list {
		if list[i].ID == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// AppendPending appends id to the pending ledger iff not already present.
// Insertion order is preserved for display; duplicates are no-ops.
func AppendPending(ledger []string, id string) []string {
	for _, p := range ledger {
		if p == id {
			return ledger
		}
	}
	return append(ledger, id)
}

// RemovePending removes id from the pending ledger; a no-op when absent.
func RemovePending(ledger []string, id string) []string {
	for i, p := range ledger {
		if p == id {
			return append(ledger[:i], ledger[i+1:]...)
		}
	}
	return ledger
}
