// Package events defines the binary records exchanged on the log: the
// envelope header, the typed request payloads (push notifications, HTTP
// requests, tenant configurations) and the typed result payloads the
// workers publish back.
//
// Every record is an envelope: a header tagging the inner message type,
// followed by the typed body. The header's Type field is the routing
// discriminator — consumers decode the header first and select the body
// schema from it. Unknown types are skipped by the caller, never
// dead-lettered.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Recognized envelope types.
const (
	TypePushNotification   = "notification.PushNotification"
	TypeHTTPRequest        = "http.HttpRequest"
	TypeApplication        = "application.Application"
	TypeNotificationResult = "notification.NotificationResult"
	TypeHTTPResponse       = "http.HttpResponse"
)

// Header is the common prefix of every record on the log.
type Header struct {
	// Type selects the body schema, e.g. "notification.PushNotification".
	Type string `json:"field_type"`
	// CreatedAt is milliseconds since the Unix epoch.
	CreatedAt   int64  `json:"created_at"`
	Source      string `json:"source"`
	RecipientID string `json:"recipient_id"`
}

// Envelope is a decoded record: header plus the still-raw body. Callers
// dispatch on Header.Type and decode the body with the typed helpers.
type Envelope struct {
	Header Header          `json:"header"`
	Body   json.RawMessage `json:"body"`
}

// NewHeader builds a result header stamped with the current time.
func NewHeader(fieldType, source, recipientID string) Header {
	return Header{
		Type:        fieldType,
		CreatedAt:   time.Now().UnixMilli(),
		Source:      source,
		RecipientID: recipientID,
	}
}

// Encode serializes a header and a typed body into a wire record.
func Encode(header Header, body interface{}) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", header.Type, err)
	}

	return json.Marshal(Envelope{Header: header, Body: raw})
}

// Decode parses a wire record into an envelope, leaving the body raw.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

// PushNotification decodes the body as a push-notification request. The
// envelope header is attached to the returned event so that downstream
// result headers can carry the original recipient id and source.
func (e *Envelope) PushNotification() (*PushNotification, error) {
	var pn PushNotification
	if err := json.Unmarshal(e.Body, &pn); err != nil {
		return nil, fmt.Errorf("decode push notification: %w", err)
	}
	pn.Header = e.Header
	return &pn, nil
}

// HTTPRequest decodes the body as a generic outbound HTTP request.
func (e *Envelope) HTTPRequest() (*HTTPRequest, error) {
	var req HTTPRequest
	if err := json.Unmarshal(e.Body, &req); err != nil {
		return nil, fmt.Errorf("decode http request: %w", err)
	}
	req.Header = e.Header
	return &req, nil
}

// Application decodes the body as a tenant configuration.
func (e *Envelope) Application() (*Application, error) {
	var app Application
	if err := json.Unmarshal(e.Body, &app); err != nil {
		return nil, fmt.Errorf("decode application: %w", err)
	}
	return &app, nil
}

// NotificationResult decodes the body as a push result. Used by tests and
// downstream routers; the workers only encode this type.
func (e *Envelope) NotificationResult() (*NotificationResult, error) {
	var res NotificationResult
	if err := json.Unmarshal(e.Body, &res); err != nil {
		return nil, fmt.Errorf("decode notification result: %w", err)
	}
	return &res, nil
}

// HTTPResponse decodes the body as a generic HTTP response record.
func (e *Envelope) HTTPResponse() (*HTTPResponse, error) {
	var res HTTPResponse
	if err := json.Unmarshal(e.Body, &res); err != nil {
		return nil, fmt.Errorf("decode http response: %w", err)
	}
	return &res, nil
}
