// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package protocol

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// Decode errors.
var (
	ErrMissingType = errors.New("protocol: message has no type field")
	ErrUnknownType = errors.New("protocol: unknown message type")
	ErrBadBase64   = errors.New("protocol: image data is not valid base64")
	ErrEmptyImage  = errors.New("protocol: image data decodes to zero bytes")
)

// validate checks payload structs against their field tags. A single
// instance is safe for concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Envelope is a partially decoded control message: the type is known,
// the payload is not yet bound to a concrete struct.
type Envelope struct {
	Type string
	raw  []byte
}

// DecodeEnvelope parses the type field of a control message. The payload
// is decoded on demand via the typed Decode* functions.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Envelope{}, fmt.Errorf("protocol: malformed JSON: %w", err)
	}
	if head.Type == "" {
		return Envelope{}, ErrMissingType
	}
	return Envelope{Type: head.Type, raw: data}, nil
}

// decodeInto unmarshals the envelope payload and validates it.
func (e Envelope) decodeInto(v interface{}) error {
	if err := json.Unmarshal(e.raw, v); err != nil {
		return fmt.Errorf("protocol: decoding %s: %w", e.Type, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("protocol: invalid %s payload: %w", e.Type, err)
	}
	return nil
}

// DecodeSessionStart binds a session_start payload.
func (e Envelope) DecodeSessionStart() (*SessionStart, error) {
	msg := &SessionStart{}
	if err := e.decodeInto(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodeMouseData binds a mouse_data payload.
func (e Envelope) DecodeMouseData() (*MouseData, error) {
	msg := &MouseData{}
	if err := e.decodeInto(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodeClickData binds a click_data payload.
func (e Envelope) DecodeClickData() (*ClickData, error) {
	msg := &ClickData{}
	if err := e.decodeInto(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodeScreenshot binds a screenshot or heatmap_metadata payload.
func (e Envelope) DecodeScreenshot() (*Screenshot, error) {
	msg := &Screenshot{}
	if err := e.decodeInto(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodeSessionEnd binds a session_end payload.
func (e Envelope) DecodeSessionEnd() (*SessionEnd, error) {
	msg := &SessionEnd{}
	if err := e.decodeInto(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodePing binds a ping payload.
func (e Envelope) DecodePing() (*Ping, error) {
	msg := &Ping{}
	if err := json.Unmarshal(e.raw, msg); err != nil {
		return nil, fmt.Errorf("protocol: decoding ping: %w", err)
	}
	return msg, nil
}

// DecodeConfigPush binds a config or config_update payload.
func (e Envelope) DecodeConfigPush() (*ConfigPush, error) {
	msg := &ConfigPush{}
	if err := json.Unmarshal(e.raw, msg); err != nil {
		return nil, fmt.Errorf("protocol: decoding config push: %w", err)
	}
	return msg, nil
}

// Marshal serializes any outbound message with the shared JSON codec.
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeImageData converts inline base64 image data to raw bytes.
// A data-URL prefix ("data:image/webp;base64,...") is tolerated and
// stripped.
func DecodeImageData(s string) ([]byte, error) {
	if idx := strings.Index(s, ";base64,"); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBase64, err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyImage
	}
	return raw, nil
}
