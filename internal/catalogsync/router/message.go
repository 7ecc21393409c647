package router

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/apigrid/catalogsync/internal/common/apperrors"
	"github.com/apigrid/catalogsync/pkg/api"
)

var validate = validator.New()

// DecodeMessage decodes a raw frame into a sync message envelope and
// validates the closed type sets. A frame that is not JSON yields
// ErrMalformedFrame; an envelope whose type or resourceType falls outside
// the closed sets yields the corresponding error. Payload contents are not
// validated here; they are interpreted per message type at apply time.
func DecodeMessage(raw []byte) (api.SyncMessage, apperrors.Error) {
	var msg api.SyncMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return api.SyncMessage{}, ErrMalformedFrame.Err(err)
	}

	if err := validate.Struct(&msg); err != nil {
		validatorErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return api.SyncMessage{}, ErrInvalidEnvelope.Err(err)
		}
		for _, e := range validatorErrors {
			switch e.StructField() {
			case "Type":
				return api.SyncMessage{}, ErrUnknownMessageType.Msg("type: " + string(msg.Type))
			case "ResourceType":
				return api.SyncMessage{}, ErrUnknownResourceType.Msg("resourceType: " + string(msg.ResourceType))
			}
		}
		return api.SyncMessage{}, ErrInvalidEnvelope.Err(err)
	}
	return msg, nil
}

// rawMessageHook marshals loosely-typed payload values into json.RawMessage
// targets, so schema documents survive the map round trip untouched in
// meaning.
func rawMessageHook(from reflect.Type, to reflect.Type, v any) (any, error) {
	if to != reflect.TypeOf(json.RawMessage{}) {
		return v, nil
	}
	if from == reflect.TypeOf(json.RawMessage{}) {
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

// decodePayload decodes a message's data map into a typed target using the
// json field names. Timestamps arrive as RFC 3339 strings.
func decodePayload(data map[string]any, target any) apperrors.Error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "json",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			rawMessageHook,
		),
	})
	if err != nil {
		return ErrInvalidPayload.Err(err)
	}
	if err := dec.Decode(data); err != nil {
		return ErrInvalidPayload.Err(err)
	}
	return nil
}

// decodeEndpoint interprets a data payload as an endpoint. The envelope's
// resourceId wins over an absent payload id.
func decodeEndpoint(msg api.SyncMessage) (api.Endpoint, apperrors.Error) {
	var ep api.Endpoint
	if err := decodePayload(msg.Data, &ep); err != nil {
		return api.Endpoint{}, err
	}
	if ep.ID == "" {
		ep.ID = msg.ResourceID
	}
	return ep, nil
}

// decodeConnection interprets a data payload as a connection.
func decodeConnection(msg api.SyncMessage) (api.Connection, apperrors.Error) {
	var cn api.Connection
	if err := decodePayload(msg.Data, &cn); err != nil {
		return api.Connection{}, err
	}
	if cn.ID == "" {
		cn.ID = msg.ResourceID
	}
	return cn, nil
}

// decodeVersion interprets a data payload as a catalog version.
func decodeVersion(msg api.SyncMessage) (api.CatalogVersion, apperrors.Error) {
	var v api.CatalogVersion
	if err := decodePayload(msg.Data, &v); err != nil {
		return api.CatalogVersion{}, err
	}
	if v.ID == "" {
		v.ID = msg.VersionID
	}
	return v, nil
}

// decodePublishPayload interprets a publish payload, which carries either a
// full catalog or a bare version. A payload with a currentVersionId key is
// a catalog; anything else is a version.
func decodePublishPayload(msg api.SyncMessage) (*api.Catalog, *api.CatalogVersion, apperrors.Error) {
	if _, ok := msg.Data["currentVersionId"]; ok {
		var c api.Catalog
		if err := decodePayload(msg.Data, &c); err != nil {
			return nil, nil, err
		}
		return &c, nil, nil
	}
	v, err := decodeVersion(msg)
	if err != nil {
		return nil, nil, err
	}
	return nil, &v, nil
}
