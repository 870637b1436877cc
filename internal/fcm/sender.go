// Package fcm is the Firebase Cloud Messaging worker: a protocol
// adapter over the legacy FCM HTTP client plus the event handler that
// binds it to the dispatch engine.
package fcm

import (
	"encoding/json"
	"errors"
	"strings"

	gofcm "github.com/appleboy/go-fcm"
	"go.uber.org/zap"

	"github.com/arc-self/push-gateway/internal/events"
)

// Client is the subset of the FCM client the sender uses; narrowed for
// unit tests. The FCM client enforces its own request timeout, so the
// adapter adds none.
type Client interface {
	Send(msg *gofcm.Message) (*gofcm.Response, error)
}

// Sender delivers push notifications for one tenant through its FCM
// server key.
type Sender struct {
	client Client
	logger *zap.Logger
}

// NewSender builds a sender from the tenant's API key.
func NewSender(cfg *events.GoogleConfig, logger *zap.Logger) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("fcm configuration carries no api key")
	}

	client, err := gofcm.NewClient(cfg.APIKey)
	if err != nil {
		return nil, err
	}

	return &Sender{client: client, logger: logger}, nil
}

// Send delivers one notification and folds the response, or the
// HTTP-level failure, into an FcmResult.
func (s *Sender) Send(pn *events.PushNotification) *events.FcmResult {
	resp, err := s.client.Send(buildMessage(pn))
	if err != nil {
		return &events.FcmResult{Successful: false, Status: transportStatus(err)}
	}
	return resultFromResponse(resp)
}

// transportStatus folds an HTTP-level send failure into a status:
// authentication failures and rejected payloads are terminal, anything
// else counts as a server error and retries.
func transportStatus(err error) events.FcmStatus {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized"):
		return events.FcmStatusUnauthorized
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid"):
		return events.FcmStatusInvalidMessage
	default:
		return events.FcmStatusServerError
	}
}

// fcmResultStatuses maps the legacy downstream error codes carried on
// per-registration results.
var fcmResultStatuses = map[string]events.FcmStatus{
	"InvalidTtl":                events.FcmStatusInvalidTTL,
	"Unavailable":               events.FcmStatusUnavailable,
	"MessageTooBig":             events.FcmStatusMessageTooBig,
	"NotRegistered":             events.FcmStatusNotRegistered,
	"InvalidDataKey":            events.FcmStatusInvalidDataKey,
	"MismatchSenderId":          events.FcmStatusMismatchSenderID,
	"InvalidPackageName":        events.FcmStatusInvalidPackageName,
	"MissingRegistration":       events.FcmStatusMissingRegistration,
	"InvalidRegistration":       events.FcmStatusInvalidRegistration,
	"DeviceMessageRateExceeded": events.FcmStatusDeviceMessageRateExceeded,
	"TopicsMessageRateExceeded": events.FcmStatusTopicsMessageRateExceeded,
}

func resultFromResponse(resp *gofcm.Response) *events.FcmResult {
	result := &events.FcmResult{
		MulticastID:  resp.MulticastID,
		CanonicalIDs: resp.CanonicalIDs,
	}

	if len(resp.Results) == 0 {
		result.Status = events.FcmStatusUnknown
		return result
	}

	first := resp.Results[0]
	result.MessageID = first.MessageID
	result.RegistrationID = first.RegistrationID

	if first.Error == nil {
		result.Successful = true
		result.Status = events.FcmStatusSuccess
		return result
	}

	if status, ok := fcmResultStatuses[first.Error.Error()]; ok {
		result.Status = status
	} else {
		result.Status = events.FcmStatusUnknown
		result.Error = first.Error.Error()
	}
	return result
}

// buildMessage translates the generic notification record into a legacy
// FCM message.
func buildMessage(pn *events.PushNotification) *gofcm.Message {
	data := pn.Google

	msg := &gofcm.Message{
		To: pn.DeviceToken,
	}

	if data.Localized != nil {
		localized := data.Localized
		notification := &gofcm.Notification{
			Title:       localized.Title,
			Tag:         localized.Tag,
			Body:        localized.Body,
			Icon:        localized.Icon,
			Sound:       localized.Sound,
			Badge:       localized.Badge,
			Color:       localized.Color,
			ClickAction: localized.ClickAction,
			BodyLocKey:  localized.BodyLocKey,
			TitleLocKey: localized.TitleLocKey,
		}
		// The legacy API carries localization arguments as JSON-encoded
		// array strings.
		if len(localized.TitleLocArgs) > 0 {
			notification.TitleLocArgs = encodeLocArgs(localized.TitleLocArgs)
		}
		if len(localized.BodyLocArgs) > 0 {
			notification.BodyLocArgs = encodeLocArgs(localized.BodyLocArgs)
		}

		msg.Notification = notification
		if len(localized.Data) > 0 {
			msg.Data = toMessageData(localized.Data)
		}
	} else if data.Message != nil {
		msg.Data = toMessageData(data.Message.Data)
	}

	if len(data.RegistrationIDs) > 0 {
		msg.RegistrationIDs = data.RegistrationIDs
	}
	if data.CollapseKey != "" {
		msg.CollapseKey = data.CollapseKey
	}
	if data.Priority == events.GooglePriorityHigh {
		msg.Priority = "high"
	} else {
		msg.Priority = "normal"
	}
	if data.ContentAvailable != nil {
		msg.ContentAvailable = *data.ContentAvailable
	}
	if data.DelayWhileIdle != nil {
		msg.DelayWhileIdle = *data.DelayWhileIdle
	}
	if data.TimeToLive != nil {
		ttl := *data.TimeToLive
		msg.TimeToLive = &ttl
	}
	if data.RestrictedPackageName != "" {
		msg.RestrictedPackageName = data.RestrictedPackageName
	}
	if data.DryRun != nil {
		msg.DryRun = *data.DryRun
	}

	return msg
}

func encodeLocArgs(args []string) string {
	encoded, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func toMessageData(data map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
