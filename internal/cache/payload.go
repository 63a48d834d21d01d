package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingWorkID is returned when a write has an empty work identifier.
	ErrMissingWorkID = errors.New("work identifier is required")
	// ErrMissingModel is returned when a classification write has an empty model identifier.
	ErrMissingModel = errors.New("model identifier is required")
)

// encodePayload serializes v to JSON text. A nil value (or one that encodes
// to JSON null) is stored as NULL.
func encodePayload(v interface{}) (*string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	text := string(data)
	return &text, nil
}

// encodeRawPayload is encodePayload for upstream work payloads: an empty
// payload ({}, [], "", 0, false) carries nothing and is stored as NULL.
func encodeRawPayload(v interface{}) (*string, error) {
	text, err := encodePayload(v)
	if err != nil || text == nil {
		return text, err
	}
	switch *text {
	case "{}", "[]", `""`, "0", "false":
		return nil, nil
	}
	return text, nil
}

func normalizeKey(workID string) (string, error) {
	id := strings.TrimSpace(workID)
	if id == "" {
		return "", ErrMissingWorkID
	}
	return id, nil
}

func normalizeCompositeKey(workID, model string) (string, string, error) {
	id, err := normalizeKey(workID)
	if err != nil {
		return "", "", err
	}
	m := strings.TrimSpace(model)
	if m == "" {
		return "", "", ErrMissingModel
	}
	return id, m, nil
}

func serializeError(what, key string, err error) error {
	return fmt.Errorf("failed to serialize %s for %s: %w", what, key, err)
}
