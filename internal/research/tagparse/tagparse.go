// Package tagparse pulls delimited fields out of free-text model responses.
//
// Parsing is two-stage: locating the field can fail with ErrFieldNotFound, and
// decoding what was found can fail with ErrMalformedPayload. Only the first
// matching pair is considered; nested identical tags are not supported.
package tagparse

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/ai-asa/chat-websearch/internal/common/errors"
	"github.com/ai-asa/chat-websearch/internal/common/validation"
)

var (
	ErrFieldNotFound    = apperrors.ErrFieldNotFound
	ErrMalformedPayload = apperrors.ErrMalformedPayload
)

// Extract returns the text strictly between the first <tag> and the first </tag> after it.
func Extract(response, tag string) (string, error) {
	return Between(response, "<"+tag+">", "</"+tag+">")
}

// Between returns the text strictly between the first open marker and the first close marker after it.
func Between(response, open, close string) (string, error) {
	start := strings.Index(response, open)
	if start < 0 {
		return "", fmt.Errorf("%w: %q", ErrFieldNotFound, open)
	}
	start += len(open)
	end := strings.Index(response[start:], close)
	if end < 0 {
		return "", fmt.Errorf("%w: %q", ErrFieldNotFound, close)
	}
	return response[start : start+end], nil
}

// Span is Between with the markers kept, e.g. a JSON array including its brackets.
func Span(response, open, close string) (string, error) {
	inner, err := Between(response, open, close)
	if err != nil {
		return "", err
	}
	return open + inner + close, nil
}

// DecodeJSON decodes raw into v; any failure is ErrMalformedPayload.
func DecodeJSON(raw string, v interface{}) error {
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// DecodeValidated checks raw against schema before decoding into v.
func DecodeValidated(raw string, schema *validation.Schema, v interface{}) error {
	trimmed := []byte(strings.TrimSpace(raw))
	res, err := schema.ValidateJSON(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !res.Valid {
		return fmt.Errorf("%w: %s", ErrMalformedPayload, res.Error())
	}
	return DecodeJSON(raw, v)
}

// ExtractJSON is Extract followed by DecodeValidated; schema may be nil.
func ExtractJSON(response, tag string, schema *validation.Schema, v interface{}) error {
	raw, err := Extract(response, tag)
	if err != nil {
		return err
	}
	if schema == nil {
		return DecodeJSON(raw, v)
	}
	return DecodeValidated(raw, schema, v)
}
