// Package payload normalizes inbound request bodies into a JSON payload.
//
// The payload is opaque cargo: it is validated and compacted, never
// interpreted. Unparseable content is wrapped as {"payload": "<text>"}
// instead of being rejected.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
)

// FieldName is the form field and wrapper key carrying the plan.
const FieldName = "payload"

// Media types recognized by Extract, matched case-insensitively anywhere
// in the Content-Type header.
const (
	mediaJSON      = "application/json"
	mediaMultipart = "multipart/form-data"
)

// Source names the extraction branch that produced a payload.
type Source string

// Extraction branches, in the order they are tried.
const (
	SourceJSON      Source = "json"
	SourceMultipart Source = "multipart"
	SourceRaw       Source = "raw"
)

// Payload is the JSON document forwarded upstream.
type Payload struct {
	// JSON is compact, valid JSON. Identical input yields identical bytes.
	JSON json.RawMessage

	// Source is the branch that handled the request.
	Source Source

	// Wrapped reports that the text was not JSON and was wrapped.
	Wrapped bool
}

// Extract builds a payload from a request's Content-Type and body.
//
//  1. application/json: the body itself.
//  2. multipart/form-data: the "payload" form field.
//  3. anything else: the raw body text.
//
// In every branch text that is not valid JSON is wrapped. Extract never fails.
func Extract(contentType string, body []byte) Payload {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, mediaJSON):
		return fromText(SourceJSON, body)
	case strings.Contains(ct, mediaMultipart):
		field, err := formField(contentType, body, FieldName)
		if err != nil {
			// Not a readable multipart body; relay what was sent.
			return fromText(SourceMultipart, body)
		}
		return fromText(SourceMultipart, field)
	default:
		return fromText(SourceRaw, body)
	}
}

func fromText(src Source, text []byte) Payload {
	if compacted, ok := compact(text); ok {
		return Payload{JSON: compacted, Source: src}
	}
	return Payload{JSON: Wrap(string(text)), Source: src, Wrapped: true}
}

func compact(text []byte) (json.RawMessage, bool) {
	if !json.Valid(text) {
		return nil, false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, text); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// Wrap encodes raw as {"payload": raw}. HTML characters are left unescaped.
func Wrap(raw string) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a map of strings cannot fail.
	_ = enc.Encode(map[string]string{FieldName: raw})
	return bytes.TrimRight(buf.Bytes(), "\n")
}

var errNoBoundary = errors.New("multipart boundary missing")

// formField returns the value of the named field in a multipart body. A body
// without the field yields an empty value; a malformed body yields an error.
func formField(contentType string, body []byte, name string) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, err
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, errNoBoundary
	}

	r := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := r.NextPart()
		if err == io.EOF { //nolint:errorlint // a clean end is the bare sentinel; truncation wraps it
			return []byte{}, nil
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() != name {
			_ = part.Close()
			continue
		}
		value, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
		return value, nil
	}
}
