package natsbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MrEthical07/iammetrics"
)

type fakeSink struct {
	mu     sync.Mutex
	users  []iammetrics.DomainEvent
	admins []iammetrics.AdminDomainEvent
}

func (f *fakeSink) OnEvent(_ context.Context, ev iammetrics.DomainEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, ev)
}

func (f *fakeSink) OnAdminEvent(_ context.Context, ev iammetrics.AdminDomainEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admins = append(f.admins, ev)
}

func TestHandleRoutesEnvelopes(t *testing.T) {
	sink := &fakeSink{}
	var hooked []string
	sub, err := NewSubscriber(Options{Subject: "iam.events"}, sink, func(_ context.Context, ev iammetrics.DomainEvent) error {
		hooked = append(hooked, ev.SessionID)
		return nil
	})
	require.NoError(t, err)

	user, err := EncodeUser(iammetrics.DomainEvent{
		Type:      iammetrics.EventLogin,
		RealmID:   "master",
		SessionID: "s-1",
		Details:   map[string]string{iammetrics.DetailIdentityProvider: "github"},
	})
	require.NoError(t, err)
	admin, err := EncodeAdmin(iammetrics.AdminDomainEvent{
		OperationType: iammetrics.OperationCreate,
		ResourceType:  iammetrics.ResourceRealm,
		RealmID:       "master",
	})
	require.NoError(t, err)

	sub.handle(&nats.Msg{Subject: "iam.events", Data: user})
	sub.handle(&nats.Msg{Subject: "iam.events", Data: admin})

	require.Len(t, sink.users, 1)
	assert.Equal(t, iammetrics.EventLogin, sink.users[0].Type)
	assert.Equal(t, "github", sink.users[0].Details[iammetrics.DetailIdentityProvider])
	require.Len(t, sink.admins, 1)
	assert.Equal(t, iammetrics.ResourceRealm, sink.admins[0].ResourceType)
	assert.Equal(t, []string{"s-1"}, hooked)
	assert.Zero(t, sub.Malformed())
}

func TestMalformedMessagesAreSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sink := &fakeSink{}
	sub, err := NewSubscriber(Options{Subject: "iam.events", Logger: zap.New(core)}, sink)
	require.NoError(t, err)

	payloads := []string{
		`not json`,
		`{"kind":"user"}`,
		`{"kind":"user","event":{"realmId":"master"}}`,
		`{"kind":"admin"}`,
		`{"kind":"system","event":{"type":"LOGIN"}}`,
	}
	for _, p := range payloads {
		assert.False(t, sub.Deliver(context.Background(), []byte(p)), p)
	}

	assert.EqualValues(t, len(payloads), sub.Malformed())
	assert.Empty(t, sink.users)
	assert.Empty(t, sink.admins)
	assert.Equal(t, len(payloads), logs.FilterMessage("dropping malformed event").Len())
}

func TestDecodeWrapsSentinel(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"nope"}`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestHookErrorsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sink := &fakeSink{}
	sub, err := NewSubscriber(Options{Subject: "iam.events", Logger: zap.New(core)}, sink, func(context.Context, iammetrics.DomainEvent) error {
		return errors.New("redis down")
	})
	require.NoError(t, err)

	data, err := EncodeUser(iammetrics.DomainEvent{Type: iammetrics.EventLogout, RealmID: "master", SessionID: "s-1"})
	require.NoError(t, err)
	assert.True(t, sub.Deliver(context.Background(), data))

	require.Len(t, sink.users, 1)
	entries := logs.FilterMessage("user event hook failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "master", entries[0].ContextMap()["realm"])
}

func TestNewSubscriberValidates(t *testing.T) {
	_, err := NewSubscriber(Options{Subject: "x"}, nil)
	assert.Error(t, err)
	_, err = NewSubscriber(Options{}, &fakeSink{})
	assert.Error(t, err)
}

func TestCloseWithoutStart(t *testing.T) {
	sub, err := NewSubscriber(Options{Subject: "x"}, &fakeSink{})
	require.NoError(t, err)
	assert.NoError(t, sub.Close())
}
