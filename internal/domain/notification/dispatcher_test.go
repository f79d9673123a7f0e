package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://app.example.com"

type harness struct {
	store    *mockStore
	email    *fakeAdapter[EmailTarget]
	webPush  *fakeAdapter[WebPushTarget]
	fcm      *fakeFCM
	recorder *fakeRecorder
	d        *Dispatcher
}

func newHarness() *harness {
	h := &harness{
		store:    &mockStore{},
		email:    newFakeAdapter[EmailTarget](nil),
		webPush:  newFakeAdapter[WebPushTarget](nil),
		fcm:      &fakeFCM{fakeAdapter: newFakeAdapter[FCMTarget](nil)},
		recorder: newFakeRecorder(),
	}
	h.d = NewDispatcher(h.store, baseURL+"/",
		WithEmail(h.email),
		WithWebPush(h.webPush),
		WithFCM(h.fcm),
		WithRecorder(h.recorder),
	)
	return h
}

func testUser() *User {
	return &User{ID: "u1", Email: "alex@example.com", Username: "alex", DisplayName: "Alex"}
}

func webSub(id string) PushSubscription {
	return PushSubscription{ID: id, UserID: "u1", Platform: PlatformWeb, Endpoint: "https://push.example.com/" + id, P256dh: "key", Auth: "auth", IsActive: true}
}

func nativeSub(id string, p Platform) PushSubscription {
	return PushSubscription{ID: id, UserID: "u1", Platform: p, FCMToken: "tok-" + id, IsActive: true}
}

var friendPayload = Payload{Title: "New friend request", Body: "Sam wants to climb with you", Link: "/friends/u2"}

func TestNotify_NotInitialized(t *testing.T) {
	d := NewDispatcher(nil, baseURL)

	_, err := d.Notify(context.Background(), "u1", TypeSystem, friendPayload, Options{})
	assert.ErrorIs(t, err, ErrNotInitialized)

	var nilDispatcher *Dispatcher
	_, err = nilDispatcher.Notify(context.Background(), "u1", TypeSystem, friendPayload, Options{})
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = d.SendTest(context.Background(), "u1", TestAll)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestNotify_RecipientMissing(t *testing.T) {
	tests := []struct {
		name string
		user *User
		err  error
	}{
		{name: "not found", user: nil, err: nil},
		{name: "lookup error", user: nil, err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.store.On("GetUserByID", mock.Anything, "ghost").Return(tt.user, tt.err)

			res, err := h.d.Notify(context.Background(), "ghost", TypeFriendRequest, friendPayload, Options{})
			require.NoError(t, err)
			assert.True(t, res.Empty())

			h.store.AssertNotCalled(t, "CreateInAppNotification", mock.Anything, mock.Anything)
			h.store.AssertNotCalled(t, "GetPushSubscriptions", mock.Anything, mock.Anything)
			assert.Empty(t, h.email.sent())
		})
	}
}

func TestNotify_AllChannels(t *testing.T) {
	h := newHarness()
	h.store.On("GetUserByID", mock.Anything, "u1").Return(testUser(), nil)
	h.store.On("CreateInAppNotification", mock.Anything, mock.MatchedBy(func(n *InAppNotification) bool {
		return n.UserID == "u1" &&
			n.Type == TypeFriendRequest &&
			n.Title == friendPayload.Title &&
			n.Message == friendPayload.Body &&
			n.Link == friendPayload.Link &&
			n.RelatedUserID == "u2"
	})).Return(nil).Once()

	inactive := webSub("w-off")
	inactive.IsActive = false
	incomplete := nativeSub("ios-empty", PlatformIOS)
	incomplete.FCMToken = ""

	h.store.On("GetPushSubscriptions", mock.Anything, "u1").Return([]PushSubscription{
		webSub("w1"),
		inactive,
		nativeSub("a1", PlatformAndroid),
		nativeSub("i1", PlatformIOS),
		incomplete,
	}, nil)

	res, err := h.d.Notify(context.Background(), "u1", TypeFriendRequest, friendPayload, Options{RelatedUserID: "u2"})
	require.NoError(t, err)

	require.NotNil(t, res.Email)
	assert.True(t, res.Email.Success)
	assert.Len(t, res.WebPush, 1)
	assert.Len(t, res.FCM, 2)

	emails := h.email.sent()
	require.Len(t, emails, 1)
	assert.Equal(t, EmailTarget{Address: "alex@example.com", Name: "Alex", ActionURL: baseURL + "/friends/u2"}, emails[0])

	assert.Equal(t, []WebPushTarget{{Endpoint: "https://push.example.com/w1", P256dh: "key", Auth: "auth"}}, h.webPush.sent())
	assert.ElementsMatch(t, []FCMTarget{
		{Token: "tok-a1", Platform: PlatformAndroid},
		{Token: "tok-i1", Platform: PlatformIOS},
	}, h.fcm.sent())

	assert.Len(t, h.recorder.sends[channelEmail], 1)
	assert.Len(t, h.recorder.sends[channelWebPush], 1)
	assert.Len(t, h.recorder.sends[channelFCM], 2)
	assert.Equal(t, 1, h.recorder.durations["notify"])

	h.store.AssertExpectations(t)
	h.store.AssertNotCalled(t, "DeactivatePushSubscription", mock.Anything, mock.Anything)
}

func TestNotify_GlobalOptOutWins(t *testing.T) {
	h := newHarness()
	user := testUser()
	user.EmailNotifications = boolPtr(false)
	user.Preferences = &NotificationPreferences{
		Email: map[NotificationType]bool{TypeFriendRequest: true},
	}

	h.store.On("GetUserByID", mock.Anything, "u1").Return(user, nil)
	h.store.On("CreateInAppNotification", mock.Anything, mock.Anything).Return(nil).Once()
	h.store.On("GetPushSubscriptions", mock.Anything, "u1").Return([]PushSubscription{webSub("w1")}, nil)

	res, err := h.d.Notify(context.Background(), "u1", TypeFriendRequest, friendPayload, Options{})
	require.NoError(t, err)

	assert.Nil(t, res.Email)
	assert.Empty(t, h.email.sent())
	assert.Len(t, res.WebPush, 1)
	h.store.AssertExpectations(t)
}

func TestNotify_PushOptOut(t *testing.T) {
	h := newHarness()
	user := testUser()
	user.PushNotifications = boolPtr(false)

	h.store.On("GetUserByID", mock.Anything, "u1").Return(user, nil)
	h.store.On("CreateInAppNotification", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := h.d.Notify(context.Background(), "u1", TypeSystem, friendPayload, Options{})
	require.NoError(t, err)

	assert.NotNil(t, res.Email)
	assert.Nil(t, res.WebPush)
	assert.Nil(t, res.FCM)
	h.store.AssertNotCalled(t, "GetPushSubscriptions", mock.Anything, mock.Anything)
}

func TestNotify_RouteValidatedDefaults(t *testing.T) {
	h := newHarness()
	h.store.On("GetUserByID", mock.Anything, "u1").Return(testUser(), nil)
	h.store.On("CreateInAppNotification", mock.Anything, mock.Anything).Return(nil).Once()
	h.store.On("GetPushSubscriptions", mock.Anything, "u1").Return([]PushSubscription{webSub("w1")}, nil)

	res, err := h.d.Notify(context.Background(), "u1", TypeRouteValidated, Payload{Title: "Validated", Body: "Your ascent was validated"}, Options{})
	require.NoError(t, err)

	assert.Nil(t, res.Email)
	assert.Len(t, res.WebPush, 1)
	assert.True(t, res.WebPush[0].Success)
}

func TestNotify_ExpiredSubscriptionDeactivatedOnce(t *testing.T) {
	h := newHarness()
	h.webPush.respond = func(t WebPushTarget) SendResult {
		switch t.Endpoint {
		case "https://push.example.com/gone":
			return Expired(ErrCodeSubscriptionExpired, "push service returned status 410")
		case "https://push.example.com/flaky":
			return Failed("push service returned status 500")
		}
		return Succeeded("m")
	}
	h.fcm.respond = func(t FCMTarget) SendResult {
		if t.Token == "tok-dead" {
			return Expired(ErrCodeTokenExpired, "registration-token-not-registered")
		}
		return Succeeded("m")
	}

	h.store.On("GetUserByID", mock.Anything, "u1").Return(testUser(), nil)
	h.store.On("CreateInAppNotification", mock.Anything, mock.Anything).Return(nil).Once()
	h.store.On("GetPushSubscriptions", mock.Anything, "u1").Return([]PushSubscription{
		webSub("ok"), webSub("gone"), webSub("flaky"), nativeSub("dead", PlatformAndroid),
	}, nil)
	h.store.On("DeactivatePushSubscription", mock.Anything, "gone").Return(nil).Once()
	h.store.On("DeactivatePushSubscription", mock.Anything, "dead").Return(nil).Once()

	res, err := h.d.Notify(context.Background(), "u1", TypeCommentReceived, friendPayload, Options{})
	require.NoError(t, err)

	require.Len(t, res.WebPush, 3)
	assert.True(t, res.WebPush[0].Success)
	assert.Equal(t, ErrCodeSubscriptionExpired, res.WebPush[1].Error)
	assert.Equal(t, "push service returned status 500", res.WebPush[2].Error)

	require.Len(t, res.FCM, 1)
	assert.Equal(t, ErrCodeTokenExpired, res.FCM[0].Error)

	h.store.AssertExpectations(t)
	h.store.AssertNotCalled(t, "DeactivatePushSubscription", mock.Anything, "flaky")
	h.store.AssertNotCalled(t, "DeactivatePushSubscription", mock.Anything, "ok")

	assert.Equal(t, 1, h.recorder.deactivations[channelWebPush])
	assert.Equal(t, 1, h.recorder.deactivations[channelFCM])
}

func TestNotify_DeactivationFailureIsLogged(t *testing.T) {
	h := newHarness()
	h.webPush.respond = func(WebPushTarget) SendResult {
		return Expired(ErrCodeSubscriptionExpired, "410")
	}

	h.store.On("GetUserByID", mock.Anything, "u1").Return(testUser(), nil)
	h.store.On("CreateInAppNotification", mock.Anything, mock.Anything).Return(nil)
	h.store.On("GetPushSubscriptions", mock.Anything, "u1").Return([]PushSubscription{webSub("gone")}, nil)
	h.store.On("DeactivatePushSubscription", mock.Anything, "gone").Return(errors.New("timeout")).Once()

	res, err := h.d.Notify(context.Background(), "u1", TypeSystem, friendPayload, Options{})
	require.NoError(t, err)
	require.Len(t, res.WebPush, 1)
	assert.True(t, res.WebPush[0].TargetExpired())
	assert.Zero(t, h.recorder.deactivations[channelWebPush])
}

func TestNotify_InAppFailureStillDelivers(t *testing.T) {
	h := newHarness()
	h.store.On("GetUserByID", mock.Anything, "u1").Return(testUser(), nil)
	h.store.On("CreateInAppNotification", mock.Anything, mock.Anything).Return(errors.New("insert failed")).Once()
	h.store.On("GetPushSubscriptions", mock.Anything, "u1").Return(nil, nil)

	res, err := h.d.Notify(context.Background(), "u1", TypeSystem, friendPayload, Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Email)
	assert.True(t, res.Email.Success)
}

func TestNotify_ChannelsNotReady(t *testing.T) {
	h := newHarness()
	h.email.ready = false
	h.webPush.ready = false
	h.fcm.ready = false

	h.store.On("GetUserByID", mock.Anything, "u1").Return(testUser(), nil)
	h.store.On("CreateInAppNotification", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := h.d.Notify(context.Background(), "u1", TypeSystem, friendPayload, Options{})
	require.NoError(t, err)

	assert.True(t, res.Empty())
	h.store.AssertExpectations(t)
	h.store.AssertNotCalled(t, "GetPushSubscriptions", mock.Anything, mock.Anything)
}

func TestNotify_FailuresStayInResult(t *testing.T) {
	h := newHarness()
	h.email.respond = func(EmailTarget) SendResult { return Failed("provider rejected the message") }

	user := testUser()
	h.store.On("GetUserByID", mock.Anything, "u1").Return(user, nil)
	h.store.On("CreateInAppNotification", mock.Anything, mock.Anything).Return(nil)
	h.store.On("GetPushSubscriptions", mock.Anything, "u1").Return(nil, errors.New("db down"))

	res, err := h.d.Notify(context.Background(), "u1", TypeSystem, friendPayload, Options{})
	require.NoError(t, err)

	require.NotNil(t, res.Email)
	assert.False(t, res.Email.Success)
	assert.Equal(t, "provider rejected the message", res.Email.Error)
	assert.Nil(t, res.WebPush)
	assert.Nil(t, res.FCM)
}

func TestNotify_NoEmailAddress(t *testing.T) {
	h := newHarness()
	user := testUser()
	user.Email = ""

	h.store.On("GetUserByID", mock.Anything, "u1").Return(user, nil)
	h.store.On("CreateInAppNotification", mock.Anything, mock.Anything).Return(nil)
	h.store.On("GetPushSubscriptions", mock.Anything, "u1").Return(nil, nil)

	res, err := h.d.Notify(context.Background(), "u1", TypeSystem, friendPayload, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Email)
	assert.Empty(t, h.email.sent())
}

func TestSendTest_BypassesPreferences(t *testing.T) {
	h := newHarness()
	user := testUser()
	user.EmailNotifications = boolPtr(false)
	user.PushNotifications = boolPtr(false)

	h.store.On("GetUserByID", mock.Anything, "u1").Return(user, nil)
	h.store.On("GetPushSubscriptions", mock.Anything, "u1").Return([]PushSubscription{webSub("w1")}, nil)

	res, err := h.d.SendTest(context.Background(), "u1", TestAll)
	require.NoError(t, err)

	require.NotNil(t, res.Email)
	assert.Len(t, res.WebPush, 1)
	assert.Equal(t, "Test notification", h.email.payloads[0].Title)
	assert.Equal(t, baseURL+"/settings/notifications", h.email.sent()[0].ActionURL)
	assert.Equal(t, 1, h.recorder.durations["test"])

	h.store.AssertNotCalled(t, "CreateInAppNotification", mock.Anything, mock.Anything)
}

func TestSendTest_ChannelSelection(t *testing.T) {
	t.Run("email only", func(t *testing.T) {
		h := newHarness()
		h.store.On("GetUserByID", mock.Anything, "u1").Return(testUser(), nil)

		res, err := h.d.SendTest(context.Background(), "u1", TestEmail)
		require.NoError(t, err)
		assert.NotNil(t, res.Email)
		assert.Nil(t, res.WebPush)
		h.store.AssertNotCalled(t, "GetPushSubscriptions", mock.Anything, mock.Anything)
	})

	t.Run("push only", func(t *testing.T) {
		h := newHarness()
		h.store.On("GetUserByID", mock.Anything, "u1").Return(testUser(), nil)
		h.store.On("GetPushSubscriptions", mock.Anything, "u1").Return([]PushSubscription{nativeSub("i1", PlatformIOS)}, nil)

		res, err := h.d.SendTest(context.Background(), "u1", TestPush)
		require.NoError(t, err)
		assert.Nil(t, res.Email)
		assert.Len(t, res.FCM, 1)
		assert.Empty(t, h.email.sent())
	})

	t.Run("missing user", func(t *testing.T) {
		h := newHarness()
		h.store.On("GetUserByID", mock.Anything, "ghost").Return(nil, nil)

		res, err := h.d.SendTest(context.Background(), "ghost", TestAll)
		require.NoError(t, err)
		assert.True(t, res.Empty())
	})
}

func TestVerifyFCMToken(t *testing.T) {
	h := newHarness()
	h.fcm.valid = map[string]bool{"good": true}

	assert.True(t, h.d.VerifyFCMToken(context.Background(), "good"))
	assert.False(t, h.d.VerifyFCMToken(context.Background(), "bad"))

	h.fcm.ready = false
	assert.False(t, h.d.VerifyFCMToken(context.Background(), "good"))

	plain := NewDispatcher(&mockStore{}, baseURL, WithFCM(newFakeAdapter[FCMTarget](nil)))
	assert.False(t, plain.VerifyFCMToken(context.Background(), "good"))
}

func TestReadiness(t *testing.T) {
	h := newHarness()
	h.webPush.ready = false

	assert.Equal(t, ChannelReadiness{Email: true, WebPush: false, FCM: true}, h.d.Readiness())
	assert.Equal(t, ChannelReadiness{}, NewDispatcher(&mockStore{}, baseURL).Readiness())
}

func TestAbsoluteURL(t *testing.T) {
	d := NewDispatcher(&mockStore{}, baseURL+"/")

	assert.Equal(t, "", d.absoluteURL(""))
	assert.Equal(t, baseURL+"/routes/9", d.absoluteURL("/routes/9"))
	assert.Equal(t, baseURL+"/routes/9", d.absoluteURL("routes/9"))
	assert.Equal(t, "https://other.example.com/x", d.absoluteURL("https://other.example.com/x"))
}
