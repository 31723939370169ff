// Heatlens - Session Heatmap Capture and Replay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heatlens

package protocol

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantErr  bool
	}{
		{"session start", `{"type":"session_start","sessionId":"abc"}`, "session_start", false},
		{"ping", `{"type":"ping","timestamp":1}`, "ping", false},
		{"missing type", `{"sessionId":"abc"}`, "", true},
		{"empty type", `{"type":""}`, "", true},
		{"not json", `{{{`, "", true},
		{"binary garbage", "\x89PNG\r\n", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env.Type != tt.wantType {
				t.Errorf("type = %q, want %q", env.Type, tt.wantType)
			}
		})
	}
}

func TestDecodeSessionStartValidation(t *testing.T) {
	valid := `{"type":"session_start","sessionId":"sess-1234","url":"https://example.com/page","timestamp":1700000000000,"viewport":{"width":1280,"height":720}}`

	env, err := DecodeEnvelope([]byte(valid))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	msg, err := env.DecodeSessionStart()
	if err != nil {
		t.Fatalf("DecodeSessionStart: %v", err)
	}
	if msg.SessionID != "sess-1234" || msg.Viewport.Width != 1280 {
		t.Errorf("unexpected payload: %+v", msg)
	}

	invalid := []string{
		`{"type":"session_start","url":"https://example.com","timestamp":1}`,          // no sessionId
		`{"type":"session_start","sessionId":"abc","timestamp":1}`,                    // no url
		`{"type":"session_start","sessionId":"abc","url":"https://x.test"}`,           // no timestamp
		`{"type":"session_start","sessionId":"ab","url":"https://x.t","timestamp":1}`, // id too short
	}
	for _, in := range invalid {
		env, err := DecodeEnvelope([]byte(in))
		if err != nil {
			t.Fatalf("DecodeEnvelope(%s): %v", in, err)
		}
		if _, err := env.DecodeSessionStart(); err == nil {
			t.Errorf("expected validation failure for %s", in)
		}
	}
}

func TestDecodeMouseDataRequiresPositions(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"mouse_data","sessionId":"s","positions":[],"timestamp":5}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if _, err := env.DecodeMouseData(); err == nil {
		t.Error("expected validation failure for empty positions")
	}

	env, err = DecodeEnvelope([]byte(`{"type":"mouse_data","sessionId":"s","positions":[{"x":1,"y":2,"timestamp":3}],"timestamp":5}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	msg, err := env.DecodeMouseData()
	if err != nil {
		t.Fatalf("DecodeMouseData: %v", err)
	}
	if len(msg.Positions) != 1 || msg.Positions[0].X != 1 {
		t.Errorf("unexpected positions: %+v", msg.Positions)
	}
}

func TestDecodeScreenshotInlineAndBinaryAnnounce(t *testing.T) {
	inline := `{"type":"screenshot","sessionId":"s","imageData":"aGVsbG8=","timestamp":9}`
	env, err := DecodeEnvelope([]byte(inline))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	msg, err := env.DecodeScreenshot()
	if err != nil {
		t.Fatalf("DecodeScreenshot: %v", err)
	}
	if msg.ImageData == "" || msg.ImageSize != 0 {
		t.Errorf("unexpected inline payload: %+v", msg)
	}

	announce := `{"type":"heatmap_metadata","sessionId":"s","imageSize":10240,"timestamp":9}`
	env, err = DecodeEnvelope([]byte(announce))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	msg, err = env.DecodeScreenshot()
	if err != nil {
		t.Fatalf("DecodeScreenshot: %v", err)
	}
	if msg.ImageSize != 10240 || msg.ImageData != "" {
		t.Errorf("unexpected announce payload: %+v", msg)
	}
}

func TestDecodeImageData(t *testing.T) {
	plain := base64.StdEncoding.EncodeToString([]byte("image-bytes"))

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"plain base64", plain, "image-bytes", nil},
		{"data url prefix", "data:image/webp;base64," + plain, "image-bytes", nil},
		{"data url png", "data:image/png;base64," + plain, "image-bytes", nil},
		{"bad base64", "!!!not-base64!!!", "", ErrBadBase64},
		{"empty payload", "", "", ErrEmptyImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeImageData(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("decoded %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarshalServerReplies(t *testing.T) {
	data, err := Marshal(NewUploadSuccess("s1_100.webp", 2048))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if env.Type != TypeUploadSuccess {
		t.Errorf("type = %q, want %q", env.Type, TypeUploadSuccess)
	}

	data, err = Marshal(NewPong(42))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	env, err = DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if env.Type != TypePong {
		t.Errorf("type = %q, want %q", env.Type, TypePong)
	}
}
