// Package webpush is the Web Push worker: a VAPID-capable protocol
// adapter plus the event handler that binds it to the dispatch engine.
package webpush

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/events"
)

// sendTimeout bounds one push-service request.
const sendTimeout = 2 * time.Second

// Sender delivers web pushes for one tenant. The subscription material
// travels on each notification; the tenant contributes the VAPID key
// pair and, for Google's legacy endpoint, the FCM server key.
type Sender struct {
	client          *http.Client
	vapidPublicKey  string
	vapidPrivateKey string
	subscriber      string
	logger          *zap.Logger
}

// fcmKeyTransport injects the legacy FCM server key as the Authorization
// header on every request the sender makes, whatever the endpoint host,
// replacing any Authorization header the request already carries.
type fcmKeyTransport struct {
	key  string
	next http.RoundTripper
}

func (t *fcmKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "key="+t.key)
	return t.next.RoundTrip(req)
}

// NewSender builds a sender from the tenant's web configuration.
func NewSender(cfg *events.WebConfig, logger *zap.Logger) (*Sender, error) {
	client := &http.Client{Timeout: sendTimeout}
	if cfg.FCMAPIKey != "" {
		client.Transport = &fcmKeyTransport{key: cfg.FCMAPIKey, next: http.DefaultTransport}
	}

	return &Sender{
		client:          client,
		vapidPublicKey:  cfg.VAPIDPublicKey,
		vapidPrivateKey: cfg.VAPIDPrivateKey,
		subscriber:      cfg.Subscriber,
		logger:          logger,
	}, nil
}

// Send delivers one notification. It returns the folded result plus the
// upstream Retry-After hint in seconds (zero when absent).
func (s *Sender) Send(ctx context.Context, pn *events.PushNotification) (*events.WebPushResult, uint32) {
	web := pn.Web

	subscription := &wp.Subscription{
		Endpoint: pn.DeviceToken,
		Keys: wp.Keys{
			Auth:   web.Auth,
			P256dh: web.P256dh,
		},
	}

	options := &wp.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.vapidPublicKey,
		VAPIDPrivateKey: s.vapidPrivateKey,
	}
	if web.TTL != nil {
		options.TTL = int(*web.TTL)
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := wp.SendNotificationWithContext(sendCtx, []byte(web.Payload), subscription, options)
	if err != nil {
		return &events.WebPushResult{Successful: false, Error: transportError(err)}, 0
	}
	defer resp.Body.Close()

	return resultFromStatus(resp)
}

func transportError(err error) events.WebPushError {
	if errors.Is(err, context.DeadlineExceeded) {
		return events.WebPushErrorTimeout
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return events.WebPushErrorTimeout
	}
	return events.WebPushErrorOther
}

// resultFromStatus folds the push-service response into a result and a
// Retry-After hint.
func resultFromStatus(resp *http.Response) (*events.WebPushResult, uint32) {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &events.WebPushResult{Successful: true}, 0

	case resp.StatusCode >= 500:
		return &events.WebPushResult{Successful: false, Error: events.WebPushErrorServerError},
			retryAfterSeconds(resp)
	}

	var kind events.WebPushError
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = events.WebPushErrorBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = events.WebPushErrorUnauthorized
	case http.StatusNotFound:
		kind = events.WebPushErrorEndpointNotFound
	case http.StatusGone:
		kind = events.WebPushErrorEndpointNotValid
	case http.StatusRequestEntityTooLarge:
		kind = events.WebPushErrorPayloadTooLarge
	default:
		kind = events.WebPushErrorUnspecified
	}
	return &events.WebPushResult{Successful: false, Error: kind}, 0
}

func retryAfterSeconds(resp *http.Response) uint32 {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.ParseUint(header, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(seconds)
}
