// Package apns is the Apple Push Notification service worker: a
// protocol adapter over the APNs HTTP/2 client plus the event handler
// that binds it to the dispatch engine.
package apns

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/events"
	"github.com/arc-self/push-gateway/internal/metrics"
)

// sendTimeout bounds one APNs request.
const sendTimeout = 3 * time.Second

// Client is the subset of the apns2 client the notifier uses; narrowed
// for unit tests.
type Client interface {
	Push(n *apns2.Notification) (*apns2.Response, error)
}

type notifierKind int

const (
	kindToken notifierKind = iota
	kindCertificate
)

// Notifier sends push notifications for one tenant over a dedicated
// APNs connection.
type Notifier struct {
	client Client
	topic  string
	kind   notifierKind
	logger *zap.Logger
}

// NewTokenNotifier builds a token-authenticated (p8 signing key)
// notifier.
func NewTokenNotifier(cfg *events.AppleConfig, logger *zap.Logger) (*Notifier, error) {
	authKey, err := token.AuthKeyFromBytes(cfg.Token.PKCS8)
	if err != nil {
		return nil, fmt.Errorf("parse apns signing key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.Token.KeyID,
		TeamID:  cfg.Token.TeamID,
	})
	configureClient(client, cfg.Endpoint)

	metrics.TokenConsumers.Inc()
	return &Notifier{client: client, topic: cfg.APNsTopic, kind: kindToken, logger: logger}, nil
}

// NewCertificateNotifier builds a certificate-authenticated (p12)
// notifier.
func NewCertificateNotifier(cfg *events.AppleConfig, logger *zap.Logger) (*Notifier, error) {
	cert, err := certificate.FromP12Bytes(cfg.Certificate.PKCS12, cfg.Certificate.Password)
	if err != nil {
		return nil, fmt.Errorf("parse apns certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	configureClient(client, cfg.Endpoint)

	metrics.CertificateConsumers.Inc()
	return &Notifier{client: client, topic: cfg.APNsTopic, kind: kindCertificate, logger: logger}, nil
}

func configureClient(client *apns2.Client, endpoint events.AppleEndpoint) {
	if endpoint == events.AppleEndpointSandbox {
		client.Development()
	} else {
		client.Production()
	}
	client.HTTPClient.Timeout = sendTimeout
}

// Close releases the notifier's client gauge. Called when the registry
// drops the entry.
func (n *Notifier) Close() {
	switch n.kind {
	case kindToken:
		metrics.TokenConsumers.Dec()
	case kindCertificate:
		metrics.CertificateConsumers.Dec()
	}
}

// Send delivers one notification and folds the response, or the
// transport failure, into an ApnsResult.
func (n *Notifier) Send(pn *events.PushNotification) *events.ApnsResult {
	resp, err := n.client.Push(n.buildNotification(pn))
	if err != nil {
		return &events.ApnsResult{Successful: false, Status: transportStatus(err)}
	}

	result := &events.ApnsResult{
		Successful: resp.Sent(),
		Status:     events.ApnsStatusFromCode(resp.StatusCode),
		Reason:     events.ApnsReasonFromString(resp.Reason),
	}
	if !resp.Timestamp.IsZero() {
		result.Timestamp = resp.Timestamp.UnixMilli()
	}
	return result
}

// transportStatus maps a client-side failure to a status: request
// timeouts retry as Timeout, connection failures as MissingChannel,
// anything else as Unknown.
func transportStatus(err error) events.ApnsStatus {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return events.ApnsStatusTimeout
		}
		return events.ApnsStatusMissingChannel
	}
	return events.ApnsStatusUnknown
}

// buildNotification translates the generic notification record into an
// APNs request.
func (n *Notifier) buildNotification(pn *events.PushNotification) *apns2.Notification {
	data := pn.Apple

	notification := &apns2.Notification{
		DeviceToken: pn.DeviceToken,
		Topic:       n.topic,
	}

	if headers := data.Headers; headers != nil {
		if headers.Priority != nil {
			if *headers.Priority == 10 {
				notification.Priority = apns2.PriorityHigh
			} else {
				notification.Priority = apns2.PriorityLow
			}
		}
		if headers.Expiration != nil {
			notification.Expiration = time.Unix(*headers.Expiration, 0)
		}
		if headers.Topic != "" {
			notification.Topic = headers.Topic
		}
	}
	if pn.CorrelationID != "" {
		notification.ApnsID = pn.CorrelationID
	}

	notification.Payload = n.buildPayload(pn)
	return notification
}

func (n *Notifier) buildPayload(pn *events.PushNotification) *payload.Payload {
	data := pn.Apple
	p := payload.NewPayload()

	switch {
	case data.Localized != nil:
		alert := data.Localized
		p.AlertTitle(alert.Title).AlertBody(alert.Body)

		if alert.TitleLocKey != "" {
			p.AlertTitleLocKey(alert.TitleLocKey)
		}
		if len(alert.TitleLocArgs) > 0 {
			p.AlertTitleLocArgs(alert.TitleLocArgs)
		}
		if alert.ActionLocKey != "" {
			p.AlertActionLocKey(alert.ActionLocKey)
		}
		if alert.LaunchImage != "" {
			p.AlertLaunchImage(alert.LaunchImage)
		}
		if alert.LocKey != "" {
			p.AlertLocKey(alert.LocKey)
		}
		if len(alert.LocArgs) > 0 {
			p.AlertLocArgs(alert.LocArgs)
		}
		if alert.MutableContent {
			p.MutableContent()
		}
		n.applyCommon(p, data)

	case data.Silent:
		p.ContentAvailable()

	default:
		var plain string
		if data.Plain != nil {
			plain = *data.Plain
		}
		p.Alert(plain)
		n.applyCommon(p, data)
	}

	if cd := data.CustomData; cd != nil {
		var value interface{}
		if err := json.Unmarshal([]byte(cd.Body), &value); err != nil {
			n.logger.Error("non-json custom data",
				zap.String("key", cd.Key), zap.Error(err))
		} else {
			p.Custom(cd.Key, value)
		}
	}

	return p
}

func (n *Notifier) applyCommon(p *payload.Payload, data *events.ApplePayload) {
	if data.Badge != nil {
		p.Badge(int(*data.Badge))
	}
	if data.Sound != "" {
		p.Sound(data.Sound)
	}
	if data.Category != "" {
		p.Category(data.Category)
	}
}
