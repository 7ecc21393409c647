package persistence

import (
	"net/http"

	"github.com/apigrid/catalogsync/internal/common/apperrors"
)

// Base persistence error
var (
	ErrPersistence apperrors.Error = apperrors.New("snapshot persistence failed").SetStatusCode(http.StatusInternalServerError)
)

var (
	ErrOpenStore       apperrors.Error = ErrPersistence.New("failed to open snapshot store").SetExpandError(true)
	ErrSnapshotCorrupt apperrors.Error = ErrPersistence.New("snapshot failed integrity check")
	ErrEncodeSnapshot  apperrors.Error = ErrPersistence.New("failed to encode snapshot").SetExpandError(true)
	ErrDecodeSnapshot  apperrors.Error = ErrPersistence.New("failed to decode snapshot").SetExpandError(true)
)
