package connection

import (
	"net/http"

	"github.com/apigrid/catalogsync/internal/common/apperrors"
)

// Base connection error
var (
	ErrConnection apperrors.Error = apperrors.New("sync connection error").SetStatusCode(http.StatusBadGateway)
)

var (
	ErrEmptyURL         apperrors.Error = ErrConnection.New("sync endpoint URL is empty").SetStatusCode(http.StatusBadRequest)
	ErrAlreadyConnected apperrors.Error = ErrConnection.New("a sync connection is already active").SetStatusCode(http.StatusConflict)
	ErrDialFailed       apperrors.Error = ErrConnection.New("failed to dial sync endpoint").SetExpandError(true).SetStatusCode(http.StatusBadGateway)
)
