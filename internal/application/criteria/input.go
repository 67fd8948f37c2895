package criteria

import (
	"bytes"
	"encoding/json"
	"strings"

	apperrors "github.com/platewise/engine/pkg/errors"
)

// ParseQuery enforces that raw request input is a non-empty JSON string.
// Missing values, null, numbers and objects are all invalid input.
func ParseQuery(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", apperrors.NewInvalidInputError("query is required")
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return "", apperrors.NewInvalidInputError("query must be a string")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewInvalidInputError("query must not be empty")
	}
	return text, nil
}
