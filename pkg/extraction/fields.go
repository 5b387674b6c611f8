package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dukex/idpflow/pkg/models"
)

const (
	DefaultConfidence    = 0.85
	DefaultPageReference = 1
)

// FormatFieldKey turns a snake_case key into Title Case. Applying it to its
// own output returns the same string.
func FormatFieldKey(key string) string {
	b := []byte(strings.ReplaceAll(key, "_", " "))

	for i := range b {
		if isWordByte(b[i]) && (i == 0 || !isWordByte(b[i-1])) && b[i] >= 'a' && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}

	return string(b)
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// MapExtractedData converts the backend extracted_data object into fields,
// keeping the order the backend returned the keys in. Null values are dropped.
func MapExtractedData(raw json.RawMessage) ([]models.Field, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return []models.Field{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted data: %w", err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("extracted data must be an object, got %v", tok)
	}

	fields := make([]models.Field, 0)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read extracted key: %w", err)
		}

		key, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to read value of %q: %w", key, err)
		}

		field, ok, err := toField(key, value)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		field.ID = strconv.Itoa(len(fields) + 1)
		fields = append(fields, field)
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read extracted data: %w", err)
	}

	return fields, nil
}

// scoredValue is the richer value shape some backends return.
type scoredValue struct {
	Value      json.RawMessage `json:"value"`
	Confidence *float64        `json:"confidence"`
	Page       *int            `json:"page"`
}

func toField(key string, raw json.RawMessage) (models.Field, bool, error) {
	field := models.Field{
		Key:           FormatFieldKey(key),
		Confidence:    DefaultConfidence,
		PageReference: DefaultPageReference,
	}

	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return field, false, nil
	}

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var scored scoredValue
		if err := json.Unmarshal(trimmed, &scored); err == nil && scored.Value != nil && (scored.Confidence != nil || scored.Page != nil) {
			if bytes.Equal(bytes.TrimSpace(scored.Value), []byte("null")) {
				return field, false, nil
			}

			if scored.Confidence != nil && *scored.Confidence >= 0 && *scored.Confidence <= 1 {
				field.Confidence = *scored.Confidence
			}

			if scored.Page != nil && *scored.Page >= 1 {
				field.PageReference = *scored.Page
			}

			trimmed = bytes.TrimSpace(scored.Value)
		}
	}

	value, err := stringify(trimmed)
	if err != nil {
		return field, false, fmt.Errorf("failed to read value of %q: %w", key, err)
	}

	field.Value = value

	return field, true, nil
}

// stringify renders strings unquoted, numbers and booleans verbatim and
// anything nested as compact JSON.
func stringify(raw json.RawMessage) (string, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}

		return s, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}

	return buf.String(), nil
}
