package store

import (
	"net/http"

	"github.com/apigrid/catalogsync/internal/common/apperrors"
)

// Base store error
var (
	ErrCatalogStore apperrors.Error = apperrors.New("catalog store operation failed").SetStatusCode(http.StatusInternalServerError)
)

var (
	ErrRefreshFailed apperrors.Error = ErrCatalogStore.New("failed to refresh catalog from server").SetExpandError(true).SetStatusCode(http.StatusBadGateway)
	ErrNoFetcher     apperrors.Error = ErrCatalogStore.New("no catalog fetcher configured").SetStatusCode(http.StatusNotImplemented)
)
