package events

// ResultError is the coarse outcome classification carried on a result
// envelope for downstream routers.
type ResultError string

const (
	ResultErrorNone         ResultError = ""
	ResultErrorUnsubscribed ResultError = "Unsubscribed"
	ResultErrorOther        ResultError = "Other"
	ResultErrorServerError  ResultError = "ServerError"
	ResultErrorTimeout      ResultError = "TimeoutError"
)

// NotificationResult is published to the output topic exactly once per
// processed push notification.
type NotificationResult struct {
	Universe      string `json:"universe,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`

	Successful bool        `json:"successful"`
	DeleteUser bool        `json:"delete_user"`
	Error      ResultError `json:"error,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	RetryAfter uint32      `json:"retry_after,omitempty"`

	// The notification that produced this result, with its
	// protocol-specific result block attached.
	Notification *PushNotification `json:"notification,omitempty"`
}

// ApnsStatus is the coarse APNs delivery status derived from the HTTP
// status code, extended with the client-side failure modes.
type ApnsStatus string

const (
	ApnsStatusSuccess          ApnsStatus = "Success"
	ApnsStatusBadRequest       ApnsStatus = "BadRequest"
	ApnsStatusForbidden        ApnsStatus = "Forbidden"
	ApnsStatusMethodNotAllowed ApnsStatus = "MethodNotAllowed"
	ApnsStatusUnregistered     ApnsStatus = "Unregistered"
	ApnsStatusPayloadTooLarge  ApnsStatus = "PayloadTooLarge"
	ApnsStatusTooManyRequests  ApnsStatus = "TooManyRequests"
	ApnsStatusError            ApnsStatus = "Error"

	// Client-side statuses, never returned by APNs itself.
	ApnsStatusTimeout        ApnsStatus = "Timeout"
	ApnsStatusMissingChannel ApnsStatus = "MissingChannel"
	ApnsStatusUnknown        ApnsStatus = "Unknown"
)

// ApnsStatusFromCode maps an APNs HTTP status code to a status.
func ApnsStatusFromCode(code int) ApnsStatus {
	switch code {
	case 200:
		return ApnsStatusSuccess
	case 400:
		return ApnsStatusBadRequest
	case 403:
		return ApnsStatusForbidden
	case 405:
		return ApnsStatusMethodNotAllowed
	case 410:
		return ApnsStatusUnregistered
	case 413:
		return ApnsStatusPayloadTooLarge
	case 429:
		return ApnsStatusTooManyRequests
	default:
		return ApnsStatusError
	}
}

// ApnsReason is the APNs error reason, carried verbatim. Empty means the
// response carried no recognized reason.
type ApnsReason string

const (
	ApnsReasonPayloadEmpty              ApnsReason = "PayloadEmpty"
	ApnsReasonBadTopic                  ApnsReason = "BadTopic"
	ApnsReasonTopicDisallowed           ApnsReason = "TopicDisallowed"
	ApnsReasonBadMessageID              ApnsReason = "BadMessageId"
	ApnsReasonBadExpirationDate         ApnsReason = "BadExpirationDate"
	ApnsReasonBadPriority               ApnsReason = "BadPriority"
	ApnsReasonMissingDeviceToken        ApnsReason = "MissingDeviceToken"
	ApnsReasonBadDeviceToken            ApnsReason = "BadDeviceToken"
	ApnsReasonDeviceTokenNotForTopic    ApnsReason = "DeviceTokenNotForTopic"
	ApnsReasonDuplicateHeaders          ApnsReason = "DuplicateHeaders"
	ApnsReasonBadCertificateEnvironment ApnsReason = "BadCertificateEnvironment"
	ApnsReasonBadCertificate            ApnsReason = "BadCertificate"
	ApnsReasonBadPath                   ApnsReason = "BadPath"
	ApnsReasonIdleTimeout               ApnsReason = "IdleTimeout"
	ApnsReasonShutdown                  ApnsReason = "Shutdown"
	ApnsReasonInternalServerError       ApnsReason = "InternalServerError"
	ApnsReasonServiceUnavailable        ApnsReason = "ServiceUnavailable"
	ApnsReasonMissingTopic              ApnsReason = "MissingTopic"
	ApnsReasonInvalidProviderToken      ApnsReason = "InvalidProviderToken"
	ApnsReasonMissingProviderToken      ApnsReason = "MissingProviderToken"
	ApnsReasonExpiredProviderToken      ApnsReason = "ExpiredProviderToken"
)

var apnsReasons = map[string]ApnsReason{
	"PayloadEmpty":              ApnsReasonPayloadEmpty,
	"BadTopic":                  ApnsReasonBadTopic,
	"TopicDisallowed":           ApnsReasonTopicDisallowed,
	"BadMessageId":              ApnsReasonBadMessageID,
	"BadExpirationDate":         ApnsReasonBadExpirationDate,
	"BadPriority":               ApnsReasonBadPriority,
	"MissingDeviceToken":        ApnsReasonMissingDeviceToken,
	"BadDeviceToken":            ApnsReasonBadDeviceToken,
	"DeviceTokenNotForTopic":    ApnsReasonDeviceTokenNotForTopic,
	"DuplicateHeaders":          ApnsReasonDuplicateHeaders,
	"BadCertificateEnvironment": ApnsReasonBadCertificateEnvironment,
	"BadCertificate":            ApnsReasonBadCertificate,
	"BadPath":                   ApnsReasonBadPath,
	"IdleTimeout":               ApnsReasonIdleTimeout,
	"Shutdown":                  ApnsReasonShutdown,
	"InternalServerError":       ApnsReasonInternalServerError,
	"ServiceUnavailable":        ApnsReasonServiceUnavailable,
	"MissingTopic":              ApnsReasonMissingTopic,
	"InvalidProviderToken":      ApnsReasonInvalidProviderToken,
	"MissingProviderToken":      ApnsReasonMissingProviderToken,
	"ExpiredProviderToken":      ApnsReasonExpiredProviderToken,
}

// ApnsReasonFromString maps an APNs error reason string to a reason,
// returning the empty reason for anything unrecognized.
func ApnsReasonFromString(s string) ApnsReason {
	return apnsReasons[s]
}

// ApnsResult is the APNs-specific result block.
type ApnsResult struct {
	Successful bool       `json:"successful"`
	Status     ApnsStatus `json:"status"`
	Reason     ApnsReason `json:"reason,omitempty"`
	// Timestamp is set by APNs on 410 responses: the last moment the
	// token was valid, in milliseconds since the epoch.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// FcmStatus is the FCM delivery status, folding the HTTP-level errors and
// the per-result error codes of the legacy downstream API.
type FcmStatus string

const (
	FcmStatusSuccess                   FcmStatus = "Success"
	FcmStatusServerError               FcmStatus = "ServerError"
	FcmStatusUnauthorized              FcmStatus = "Unauthorized"
	FcmStatusInvalidMessage            FcmStatus = "InvalidMessage"
	FcmStatusMissingCertificate        FcmStatus = "MissingCertificate"
	FcmStatusInvalidTTL                FcmStatus = "InvalidTtl"
	FcmStatusUnavailable               FcmStatus = "Unavailable"
	FcmStatusMessageTooBig             FcmStatus = "MessageTooBig"
	FcmStatusNotRegistered             FcmStatus = "NotRegistered"
	FcmStatusInvalidDataKey            FcmStatus = "InvalidDataKey"
	FcmStatusMismatchSenderID          FcmStatus = "MismatchSenderId"
	FcmStatusInvalidPackageName        FcmStatus = "InvalidPackageName"
	FcmStatusMissingRegistration       FcmStatus = "MissingRegistration"
	FcmStatusInvalidRegistration       FcmStatus = "InvalidRegistration"
	FcmStatusDeviceMessageRateExceeded FcmStatus = "DeviceMessageRateExceeded"
	FcmStatusTopicsMessageRateExceeded FcmStatus = "TopicsMessageRateExceeded"
	FcmStatusUnknown                   FcmStatus = "Unknown"
)

// FcmResult is the FCM-specific result block.
type FcmResult struct {
	Successful bool      `json:"successful"`
	Status     FcmStatus `json:"status"`
	// Error carries the raw error detail for invalid messages.
	Error string `json:"error,omitempty"`

	MulticastID    int64  `json:"multicast_id,omitempty"`
	CanonicalIDs   int    `json:"canonical_ids,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
}

// WebPushError is the Web Push failure mode, mirroring the error space of
// the upstream protocol client.
type WebPushError string

const (
	WebPushErrorNone             WebPushError = ""
	WebPushErrorUnspecified      WebPushError = "Unspecified"
	WebPushErrorUnauthorized     WebPushError = "Unauthorized"
	WebPushErrorBadRequest       WebPushError = "BadRequest"
	WebPushErrorServerError      WebPushError = "ServerError"
	WebPushErrorInvalidURI       WebPushError = "InvalidUri"
	WebPushErrorTimeout          WebPushError = "TimeoutError"
	WebPushErrorEndpointNotValid WebPushError = "EndpointNotValid"
	WebPushErrorEndpointNotFound WebPushError = "EndpointNotFound"
	WebPushErrorPayloadTooLarge  WebPushError = "PayloadTooLarge"
	WebPushErrorOther            WebPushError = "Other"
)

// WebPushResult is the Web Push-specific result block.
type WebPushResult struct {
	Successful bool         `json:"successful"`
	Error      WebPushError `json:"error,omitempty"`
}
