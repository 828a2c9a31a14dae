package service

import (
	"fmt"

	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/objref"
	"github.com/emrgen/coa/internal/store"
)

const (
	BackendStore = "store"
	BackendKV    = "kv"
)

// COABackend is a COA manager able to handle certificate files.
type COABackend interface {
	COAManager
	COAFiles
}

// ManagerOptions carries every collaborator a backend may need.
type ManagerOptions struct {
	Backend  string
	Store    store.Store
	Blobs    blob.Store
	Resolver objref.Resolver
	KV       KV
	Prefix   string
}

// NewCOAManager builds the backend named by opts.Backend (default store).
func NewCOAManager(opts ManagerOptions) (COABackend, error) {
	switch opts.Backend {
	case "", BackendStore:
		if opts.Store == nil || opts.Blobs == nil {
			return nil, fmt.Errorf("store backend needs a database and a blob store")
		}
		return NewCOAService(opts.Store, opts.Blobs, opts.Resolver, opts.Prefix), nil
	case BackendKV:
		if opts.KV == nil {
			return nil, fmt.Errorf("kv backend needs redis")
		}
		return NewKVCOAManager(opts.KV, opts.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown coa backend %q", opts.Backend)
	}
}
