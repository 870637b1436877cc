// Package classify folds upstream delivery outcomes into result
// envelopes and routing decisions.
//
// Classification is a deterministic function of the notification and its
// protocol-specific result block; all protocol error spaces collapse to
// the common envelope before routing. Its one side effect: a retry
// classification also writes retry_after into the notification itself. The routing key steers downstream
// consumers: "ok" for delivered, "retry" for transient failures
// (carrying a retry_after), "no_retry" for terminal ones.
package classify

import (
	"github.com/arc-self/push-gateway/internal/events"
)

// Routing keys placed on output records.
const (
	RouteOK      = "ok"
	RouteRetry   = "retry"
	RouteNoRetry = "no_retry"
)

// maxBackoffExp caps the exponential backoff at 2^31 seconds.
const maxBackoffExp = 31

// Backoff computes the retry delay in seconds: 2^retry_count, capped.
// A zero retry count yields one second.
func Backoff(retryCount uint32) uint32 {
	if retryCount > maxBackoffExp {
		retryCount = maxBackoffExp
	}
	return 1 << retryCount
}

// base copies the envelope fields every classification sets.
func base(pn *events.PushNotification) *events.NotificationResult {
	return &events.NotificationResult{
		Universe:      pn.Universe,
		CorrelationID: pn.CorrelationID,
		Notification:  pn,
	}
}

// setRetry attaches the computed delay to the envelope and to the echoed
// notification, so a requeued event carries its own retry_after.
func setRetry(res *events.NotificationResult, seconds uint32) {
	res.RetryAfter = seconds
	if res.Notification != nil {
		res.Notification.RetryAfter = seconds
	}
}

// NoTenant classifies a request whose tenant has no registry entry.
func NoTenant(pn *events.PushNotification) (*events.NotificationResult, string) {
	res := base(pn)
	res.Successful = false
	res.DeleteUser = false
	res.Error = events.ResultErrorOther
	res.Reason = "MissingCertificate"
	return res, RouteNoRetry
}

// Apple classifies an APNs result.
func Apple(pn *events.PushNotification, r *events.ApnsResult) (*events.NotificationResult, string) {
	res := base(pn)

	switch {
	case r.Status == events.ApnsStatusSuccess:
		res.Successful = true
		return res, RouteOK

	case r.Status == events.ApnsStatusUnregistered:
		res.DeleteUser = true
		res.Error = events.ResultErrorUnsubscribed
		return res, RouteNoRetry
	}

	switch r.Reason {
	case events.ApnsReasonDeviceTokenNotForTopic, events.ApnsReasonBadDeviceToken:
		res.DeleteUser = true
		res.Error = events.ResultErrorUnsubscribed
		res.Reason = string(r.Reason)
		return res, RouteNoRetry

	case events.ApnsReasonInternalServerError, events.ApnsReasonShutdown,
		events.ApnsReasonServiceUnavailable, events.ApnsReasonExpiredProviderToken:
		res.Error = events.ResultErrorOther
		res.Reason = string(r.Reason)
		setRetry(res, Backoff(pn.RetryCount))
		return res, RouteRetry
	}

	switch r.Status {
	case events.ApnsStatusTimeout, events.ApnsStatusUnknown,
		events.ApnsStatusForbidden, events.ApnsStatusMissingChannel:
		res.Error = events.ResultErrorOther
		res.Reason = string(r.Status)
		setRetry(res, Backoff(pn.RetryCount))
		return res, RouteRetry
	}

	res.Error = events.ResultErrorOther
	if r.Reason != "" {
		res.Reason = string(r.Reason)
	} else {
		res.Reason = string(r.Status)
	}
	return res, RouteNoRetry
}

// Fcm classifies an FCM result.
func Fcm(pn *events.PushNotification, r *events.FcmResult) (*events.NotificationResult, string) {
	res := base(pn)

	switch r.Status {
	case events.FcmStatusSuccess:
		res.Successful = true
		return res, RouteOK

	case events.FcmStatusNotRegistered:
		res.DeleteUser = true
		res.Error = events.ResultErrorUnsubscribed
		return res, RouteNoRetry

	case events.FcmStatusServerError:
		res.Error = events.ResultErrorServerError
		res.Reason = string(r.Status)
		setRetry(res, Backoff(pn.RetryCount))
		return res, RouteRetry

	default:
		res.Error = events.ResultErrorOther
		res.Reason = string(r.Status)
		return res, RouteNoRetry
	}
}

// Web classifies a Web Push result. retryAfterHint is the upstream
// Retry-After value in seconds, zero when absent; it wins over the
// computed backoff.
func Web(pn *events.PushNotification, r *events.WebPushResult, retryAfterHint uint32) (*events.NotificationResult, string) {
	res := base(pn)

	switch r.Error {
	case events.WebPushErrorNone:
		res.Successful = true
		return res, RouteOK

	case events.WebPushErrorEndpointNotValid, events.WebPushErrorEndpointNotFound:
		res.DeleteUser = true
		res.Error = events.ResultErrorUnsubscribed
		res.Reason = string(r.Error)
		return res, RouteNoRetry

	case events.WebPushErrorServerError:
		res.Error = events.ResultErrorServerError
		res.Reason = string(r.Error)
		if retryAfterHint > 0 {
			setRetry(res, retryAfterHint)
		} else {
			setRetry(res, Backoff(pn.RetryCount))
		}
		return res, RouteRetry

	case events.WebPushErrorTimeout:
		res.Error = events.ResultErrorTimeout
		res.Reason = string(r.Error)
		setRetry(res, Backoff(pn.RetryCount))
		return res, RouteRetry

	default:
		res.Error = events.ResultErrorOther
		res.Reason = string(r.Error)
		return res, RouteNoRetry
	}
}
