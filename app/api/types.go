package api

import (
	"github.com/gaixen/credtech-ingest/app/sources"
	"github.com/gaixen/credtech-ingest/app/storage"
)

// Handler serves the read-only operational endpoints. It consumes only
// the storage contract plus the adapter map for status reporting.
type Handler struct {
	storage storage.Storage
	sources map[string]sources.Source
}

func NewHandler(store storage.Storage, srcs map[string]sources.Source) *Handler {
	return &Handler{
		storage: store,
		sources: srcs,
	}
}
