package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodePushNotificationRoundTrip(t *testing.T) {
	badge := uint32(3)
	priority := int32(10)

	pn := PushNotification{
		ApplicationID: "11111111-2222-3333-4444-555555555555",
		DeviceToken:   "abcd",
		Universe:      "universe-1",
		CorrelationID: "c1",
		RetryCount:    2,
		Apple: &ApplePayload{
			Localized: &LocalizedAlert{
				Title:          "Hello",
				Body:           "World",
				TitleLocKey:    "TITLE_KEY",
				TitleLocArgs:   []string{"a", "b"},
				MutableContent: true,
			},
			Badge:    &badge,
			Sound:    "default",
			Category: "MESSAGE",
			Headers:  &ApnsHeaders{Priority: &priority, Topic: "com.x.y"},
			CustomData: &CustomData{
				Key:  "acme",
				Body: `{"deep": "link"}`,
			},
		},
	}

	header := NewHeader(TypePushNotification, "rest-api", "user-1")
	data, err := Encode(header, pn)
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypePushNotification, env.Header.Type)
	assert.Equal(t, "rest-api", env.Header.Source)
	assert.Equal(t, "user-1", env.Header.RecipientID)

	decoded, err := env.PushNotification()
	require.NoError(t, err)
	assert.Equal(t, env.Header, decoded.Header)

	// The attached header is not part of the body; blank it for the
	// field comparison.
	decoded.Header = Header{}
	assert.Equal(t, pn, *decoded)
}

func TestEncodeDecodeApplicationRoundTrip(t *testing.T) {
	app := Application{
		ID:           "AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE",
		VersionToken: "2019-03-01T10:00:00Z",
		Apple: &AppleConfig{
			Endpoint:  AppleEndpointProduction,
			APNsTopic: "com.x.y",
			Token: &AppleTokenAuth{
				PKCS8:  []byte("not-a-real-key"),
				KeyID:  "K1",
				TeamID: "T1",
			},
		},
		Google: &GoogleConfig{APIKey: "api-key"},
		Web:    &WebConfig{FCMAPIKey: "legacy-key"},
	}

	data, err := Encode(NewHeader(TypeApplication, "config-service", ""), app)
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, TypeApplication, env.Header.Type)

	decoded, err := env.Application()
	require.NoError(t, err)
	assert.Equal(t, app, *decoded)
}

func TestEncodeDecodeNotificationResultRoundTrip(t *testing.T) {
	res := NotificationResult{
		Universe:      "universe-1",
		CorrelationID: "c1",
		Successful:    false,
		DeleteUser:    true,
		Error:         ResultErrorUnsubscribed,
		Reason:        "BadDeviceToken",
		RetryAfter:    8,
	}

	data, err := Encode(NewHeader(TypeNotificationResult, "apns", "user-1"), res)
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)

	decoded, err := env.NotificationResult()
	require.NoError(t, err)
	assert.Equal(t, res, *decoded)
}

func TestEncodeDecodeHTTPRequestRoundTrip(t *testing.T) {
	req := HTTPRequest{
		RequestType:   HTTPVerbPost,
		URI:           "https://example.com/hook",
		Params:        map[string]string{"a": "1"},
		Headers:       map[string]string{"Content-Type": "application/json"},
		Body:          `{"ping": true}`,
		Timeout:       2000,
		CorrelationID: "c2",
	}

	data, err := Encode(NewHeader(TypeHTTPRequest, "sendreq", ""), req)
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)

	decoded, err := env.HTTPRequest()
	require.NoError(t, err)
	decoded.Header = Header{}
	assert.Equal(t, req, *decoded)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not an envelope"))
	assert.Error(t, err)
}

func TestDecodeUnknownTypeKeepsHeader(t *testing.T) {
	raw, err := json.Marshal(map[string]interface{}{
		"header": map[string]interface{}{"field_type": "mystery.Record"},
		"body":   map[string]interface{}{"x": 1},
	})
	require.NoError(t, err)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "mystery.Record", env.Header.Type)
}

func TestApnsStatusFromCode(t *testing.T) {
	cases := map[int]ApnsStatus{
		200: ApnsStatusSuccess,
		400: ApnsStatusBadRequest,
		403: ApnsStatusForbidden,
		405: ApnsStatusMethodNotAllowed,
		410: ApnsStatusUnregistered,
		413: ApnsStatusPayloadTooLarge,
		429: ApnsStatusTooManyRequests,
		500: ApnsStatusError,
		418: ApnsStatusError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ApnsStatusFromCode(code), "code %d", code)
	}
}

func TestApnsReasonFromString(t *testing.T) {
	assert.Equal(t, ApnsReasonBadDeviceToken, ApnsReasonFromString("BadDeviceToken"))
	assert.Equal(t, ApnsReasonExpiredProviderToken, ApnsReasonFromString("ExpiredProviderToken"))
	assert.Equal(t, ApnsReason(""), ApnsReasonFromString("SomethingNew"))
}
