package fcm

import (
	"errors"
	"testing"

	gofcm "github.com/appleboy/go-fcm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arc-self/push-gateway/internal/events"
)

type fakeFcmClient struct {
	captured *gofcm.Message
	response *gofcm.Response
	err      error
}

func (f *fakeFcmClient) Send(msg *gofcm.Message) (*gofcm.Response, error) {
	f.captured = msg
	return f.response, f.err
}

func testSender(t *testing.T, client Client) *Sender {
	t.Helper()
	return &Sender{client: client, logger: zaptest.NewLogger(t)}
}

func notification() *events.PushNotification {
	return &events.PushNotification{
		ApplicationID: "app-B",
		DeviceToken:   "reg-token",
		Google: &events.GooglePayload{
			Localized: &events.GoogleLocalized{
				Title: "Title",
				Body:  "Body",
			},
		},
	}
}

func TestBuildLocalizedMessage(t *testing.T) {
	available := true
	ttl := uint(3600)
	dryRun := true

	pn := &events.PushNotification{
		DeviceToken: "reg-token",
		Google: &events.GooglePayload{
			Localized: &events.GoogleLocalized{
				Title:        "Title",
				Tag:          "tag",
				Body:         "Body",
				Icon:         "icon",
				Sound:        "default",
				Badge:        "2",
				Color:        "#ff0000",
				ClickAction:  "OPEN",
				BodyLocKey:   "BODY_KEY",
				BodyLocArgs:  []string{"a", "b"},
				TitleLocKey:  "TITLE_KEY",
				TitleLocArgs: []string{"x"},
				Data:         map[string]string{"k": "v"},
			},
			RegistrationIDs:       []string{"r1", "r2"},
			CollapseKey:           "collapse",
			Priority:              events.GooglePriorityHigh,
			ContentAvailable:      &available,
			TimeToLive:            &ttl,
			RestrictedPackageName: "com.x.y",
			DryRun:                &dryRun,
		},
	}

	msg := buildMessage(pn)

	assert.Equal(t, "reg-token", msg.To)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, "Title", msg.Notification.Title)
	assert.Equal(t, "Body", msg.Notification.Body)
	assert.Equal(t, "tag", msg.Notification.Tag)
	assert.Equal(t, "2", msg.Notification.Badge)
	assert.Equal(t, "OPEN", msg.Notification.ClickAction)
	assert.Equal(t, "BODY_KEY", msg.Notification.BodyLocKey)
	assert.Equal(t, `["a","b"]`, msg.Notification.BodyLocArgs)
	assert.Equal(t, `["x"]`, msg.Notification.TitleLocArgs)
	assert.Equal(t, map[string]interface{}{"k": "v"}, msg.Data)
	assert.Equal(t, []string{"r1", "r2"}, msg.RegistrationIDs)
	assert.Equal(t, "collapse", msg.CollapseKey)
	assert.Equal(t, "high", msg.Priority)
	assert.True(t, msg.ContentAvailable)
	require.NotNil(t, msg.TimeToLive)
	assert.Equal(t, uint(3600), *msg.TimeToLive)
	assert.Equal(t, "com.x.y", msg.RestrictedPackageName)
	assert.True(t, msg.DryRun)
}

func TestBuildDataMessage(t *testing.T) {
	pn := &events.PushNotification{
		DeviceToken: "reg-token",
		Google: &events.GooglePayload{
			Message: &events.GoogleData{Data: map[string]string{"k": "v"}},
		},
	}

	msg := buildMessage(pn)

	assert.Nil(t, msg.Notification)
	assert.Equal(t, map[string]interface{}{"k": "v"}, msg.Data)
	assert.Equal(t, "normal", msg.Priority)
}

func TestSendSuccess(t *testing.T) {
	client := &fakeFcmClient{response: &gofcm.Response{
		MulticastID: 42,
		Results:     []gofcm.Result{{MessageID: "m1"}},
	}}

	result := testSender(t, client).Send(notification())

	assert.True(t, result.Successful)
	assert.Equal(t, events.FcmStatusSuccess, result.Status)
	assert.Equal(t, int64(42), result.MulticastID)
	assert.Equal(t, "m1", result.MessageID)
}

func TestSendResultErrorMapping(t *testing.T) {
	cases := map[string]events.FcmStatus{
		"NotRegistered":             events.FcmStatusNotRegistered,
		"Unavailable":               events.FcmStatusUnavailable,
		"MessageTooBig":             events.FcmStatusMessageTooBig,
		"InvalidRegistration":       events.FcmStatusInvalidRegistration,
		"MismatchSenderId":          events.FcmStatusMismatchSenderID,
		"InvalidTtl":                events.FcmStatusInvalidTTL,
		"DeviceMessageRateExceeded": events.FcmStatusDeviceMessageRateExceeded,
	}

	for code, want := range cases {
		client := &fakeFcmClient{response: &gofcm.Response{
			Results: []gofcm.Result{{Error: errors.New(code)}},
		}}

		result := testSender(t, client).Send(notification())

		assert.False(t, result.Successful, code)
		assert.Equal(t, want, result.Status, code)
	}
}

func TestSendUnknownResultError(t *testing.T) {
	client := &fakeFcmClient{response: &gofcm.Response{
		Results: []gofcm.Result{{Error: errors.New("SomethingNew")}},
	}}

	result := testSender(t, client).Send(notification())

	assert.Equal(t, events.FcmStatusUnknown, result.Status)
	assert.Equal(t, "SomethingNew", result.Error)
}

func TestSendEmptyResults(t *testing.T) {
	client := &fakeFcmClient{response: &gofcm.Response{}}

	result := testSender(t, client).Send(notification())

	assert.False(t, result.Successful)
	assert.Equal(t, events.FcmStatusUnknown, result.Status)
}

func TestSendTransportErrors(t *testing.T) {
	cases := []struct {
		err  error
		want events.FcmStatus
	}{
		{errors.New("401 error: unauthorized"), events.FcmStatusUnauthorized},
		{errors.New("400 error: invalid message"), events.FcmStatusInvalidMessage},
		{errors.New("500 error: internal server error"), events.FcmStatusServerError},
		{errors.New("connection refused"), events.FcmStatusServerError},
	}

	for _, tc := range cases {
		client := &fakeFcmClient{err: tc.err}
		result := testSender(t, client).Send(notification())

		assert.False(t, result.Successful, tc.err.Error())
		assert.Equal(t, tc.want, result.Status, tc.err.Error())
	}
}

func TestNewSenderRequiresAPIKey(t *testing.T) {
	_, err := NewSender(&events.GoogleConfig{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
