// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing request bodies. Handlers accept
// JSON objects as well as form-encoded data, and numeric fields may arrive as
// numbers or strings the way a form input would send them.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"teamfee/internal/core"
)

const (
	maxFormBody   = 64 << 10
	maxImportBody = 10 << 20
)

var errBadRequest = errors.New("malformed request body")

// readBody reads at most limit bytes of the request body.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", errBadRequest, limit)
	}
	return body, nil
}

// RequestBodyParser reads a request body once and exposes its fields,
// whether it was sent as a JSON object or as form data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]json.RawMessage
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser creates a parser for the given request.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = readBody(r, maxFormBody)
	return p
}

// Parse decodes the body. A body starting with '{' is read as JSON, anything
// else as form data. An empty body has no fields.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	switch {
	case len(trimmed) == 0:
		p.formData = url.Values{}
	case trimmed[0] == '{':
		if err := json.Unmarshal(trimmed, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %w", errBadRequest, err)
		}
	case trimmed[0] == '[':
		p.err = fmt.Errorf("%w: expected an object", errBadRequest)
	default:
		values, err := url.ParseQuery(string(trimmed))
		if err != nil {
			p.err = fmt.Errorf("%w: %w", errBadRequest, err)
		}
		p.formData = values
	}
	return p.err
}

// Get returns a sanitized string field. Numbers are returned as written.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		raw, ok := p.jsonData[key]
		if !ok {
			return ""
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return sanitizeInput(s)
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
		return ""
	}
	return sanitizeInput(p.formData.Get(key))
}

// Has reports whether the field was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	_, ok := p.formData[key]
	return ok
}

// OptionalNumber reads a numeric field that may be left unset. Absent,
// null and blank values yield nil; anything else must be a finite number or
// the call fails with invalid.
func (p *RequestBodyParser) OptionalNumber(key string, invalid error) (*float64, error) {
	if p.jsonData != nil {
		v, ok := decodeOptionalNumber(p.jsonData[key])
		if !ok {
			return nil, invalid
		}
		return v, nil
	}
	v, err := core.ParseOptionalAmount(p.formData.Get(key))
	if err != nil {
		return nil, invalid
	}
	return v, nil
}

// LenientNumber reads a numeric field and falls back to 0 when it is unset
// or not a number.
func (p *RequestBodyParser) LenientNumber(key string) float64 {
	if p.jsonData != nil {
		v, _ := core.DecodeNumber(p.jsonData[key])
		return v
	}
	return core.CoerceAmount(p.formData.Get(key))
}

func decodeOptionalNumber(raw json.RawMessage) (*float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) == "" {
		return nil, true
	}
	v, ok := core.DecodeNumber(raw)
	if !ok {
		return nil, false
	}
	return &v, true
}
