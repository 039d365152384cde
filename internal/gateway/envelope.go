package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// Roughly half of the backend's endpoints wrap their payload as
// {"result": bool, "error": string, "data": T}; the rest return T bare.
// Which endpoint uses which shape is not stable, so every response is
// probed and both shapes are accepted.

type envelope struct {
	Result *bool           `json:"result"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

// decodeBody unwraps an envelope when the body looks like one and decodes
// the payload into result. result=false yields an *EnvelopeError.
func decodeBody(data []byte, result any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '{' {
		if env, ok := probeEnvelope(trimmed); ok {
			if env.Result != nil && !*env.Result {
				msg := strings.TrimSpace(env.Error)
				if msg == "" {
					msg = genericFailure
				}
				return &EnvelopeError{Message: msg}
			}
			if result == nil || len(env.Data) == 0 || string(env.Data) == "null" {
				return nil
			}
			return json.Unmarshal(env.Data, result)
		}
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(trimmed, result)
}

// probeEnvelope reports whether an object carries the envelope keys.
func probeEnvelope(data []byte) (envelope, bool) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return envelope{}, false
	}
	_, hasResult := keys["result"]
	_, hasData := keys["data"]
	if !hasResult && !hasData {
		return envelope{}, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, false
	}
	return env, true
}

// errorMessage extracts a readable message from an error response body.
func errorMessage(status int, body []byte) string {
	var shaped struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &shaped) == nil {
		switch e := shaped.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if m, ok := e["message"].(string); ok && m != "" {
				return m
			}
		}
		if shaped.Message != "" {
			return shaped.Message
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return http.StatusText(status)
}
