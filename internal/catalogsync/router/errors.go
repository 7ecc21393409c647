package router

import (
	"net/http"

	"github.com/apigrid/catalogsync/internal/common/apperrors"
)

// Base message error
var (
	ErrSyncMessage apperrors.Error = apperrors.New("sync message processing failed").SetStatusCode(http.StatusBadRequest)
)

// Decode errors. These are surfaced at decode time only; a message that
// decodes cleanly is never rejected mid-mutation.
var (
	ErrMalformedFrame      apperrors.Error = ErrSyncMessage.New("malformed sync frame").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrInvalidEnvelope     apperrors.Error = ErrSyncMessage.New("invalid sync message envelope").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrUnknownMessageType  apperrors.Error = ErrSyncMessage.New("unknown sync message type").SetStatusCode(http.StatusBadRequest)
	ErrUnknownResourceType apperrors.Error = ErrSyncMessage.New("unknown resource type").SetStatusCode(http.StatusBadRequest)
	ErrInvalidPayload      apperrors.Error = ErrSyncMessage.New("invalid message payload").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
)

// Conflict reporting
var (
	ErrConflictReported apperrors.Error = ErrSyncMessage.New("sync conflict reported by server").SetStatusCode(http.StatusConflict)
)
