package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/combogate/core/netutil"
)

type fakeClient struct {
	mu         sync.Mutex
	createErrs []error
	creates    int
	lastReq    InvoiceRequest
	polls      []Invoice
	pollErrs   []error
	pollCalls  int
}

func (f *fakeClient) CreateInvoice(_ context.Context, req InvoiceRequest) (Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.creates
	f.creates++
	f.lastReq = req
	if i < len(f.createErrs) && f.createErrs[i] != nil {
		return Invoice{}, f.createErrs[i]
	}
	return Invoice{ID: 500 + int64(i), Status: StatusPending, Payload: req.Payload, PayURL: "https://pay/500"}, nil
}

func (f *fakeClient) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.pollCalls
	f.pollCalls++
	if i < len(f.pollErrs) && f.pollErrs[i] != nil {
		return Invoice{}, f.pollErrs[i]
	}
	if i >= len(f.polls) {
		i = len(f.polls) - 1
	}
	inv := f.polls[i]
	inv.ID = id
	return inv, nil
}

type fakeStore struct {
	mu     sync.Mutex
	subs   map[int64]bool
	grants int
}

func newFakeStore() *fakeStore { return &fakeStore{subs: map[int64]bool{}} }

func (s *fakeStore) IsEntitled(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[id]
}

func (s *fakeStore) Grant(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[id] {
		return false, nil
	}
	s.subs[id] = true
	s.grants++
	return true, nil
}

func testPolicy(delays *[]time.Duration) netutil.Policy {
	p := netutil.DefaultPolicy()
	p.Sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return p
}

var testConfig = Config{Asset: "USDT", Amount: "2", Description: "Combo access", BotUsername: "@combobot", AdminID: 1}

func TestCreateInvoiceEmbedsUserAndCallback(t *testing.T) {
	var delays []time.Duration
	client := &fakeClient{}
	w := NewWorkflow(client, newFakeStore(), testConfig, WithPolicy(testPolicy(&delays)))

	co, err := w.CreateInvoice(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, Checkout{InvoiceID: 500, PayURL: "https://pay/500"}, co)
	require.Equal(t, "42", client.lastReq.Payload)
	require.Equal(t, "USDT", client.lastReq.Asset)
	require.Equal(t, "https://t.me/combobot?start=paid_42", client.lastReq.PaidBtnURL)
	require.Empty(t, delays)
}

func TestCreateInvoiceFailsAfterThreeAttempts(t *testing.T) {
	var delays []time.Duration
	boom := errors.New("connection reset")
	client := &fakeClient{createErrs: []error{boom, boom, boom, nil}}
	store := newFakeStore()
	w := NewWorkflow(client, store, testConfig, WithPolicy(testPolicy(&delays)))

	co, err := w.CreateInvoice(context.Background(), 42)
	require.ErrorIs(t, err, ErrProviderUnavailable)
	require.ErrorIs(t, err, boom)
	require.Zero(t, co.InvoiceID)
	require.Empty(t, co.PayURL)
	require.Equal(t, 3, client.creates)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	require.False(t, w.IsEntitled(42))
	require.Zero(t, store.grants)
}

func TestPollPendingThenPaidGrantsOnce(t *testing.T) {
	var delays []time.Duration
	client := &fakeClient{polls: []Invoice{
		{Status: StatusPending, Payload: "42"},
		{Status: StatusPaid, Payload: "42"},
		{Status: StatusPaid, Payload: "42"},
	}}
	store := newFakeStore()
	w := NewWorkflow(client, store, testConfig, WithPolicy(testPolicy(&delays)))
	ctx := context.Background()

	res, err := w.PollInvoice(ctx, 500)
	require.NoError(t, err)
	require.Equal(t, StatusPending, res.Status)
	require.False(t, res.Granted)
	require.False(t, w.IsEntitled(42))

	res, err = w.PollInvoice(ctx, 500)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, res.Status)
	require.True(t, res.Granted)
	require.Equal(t, int64(42), res.UserID)
	require.True(t, w.IsEntitled(42))

	res, err = w.PollInvoice(ctx, 500)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, res.Status)
	require.False(t, res.Granted)
	require.True(t, w.IsEntitled(42))
	require.Equal(t, 1, store.grants)
}

func TestPollNonPaidStatusesLeaveStateAlone(t *testing.T) {
	for _, st := range []InvoiceStatus{StatusExpired, StatusFailed, StatusRefunded, Unknown("weird")} {
		var delays []time.Duration
		store := newFakeStore()
		w := NewWorkflow(&fakeClient{polls: []Invoice{{Status: st, Payload: "42"}}}, store, testConfig, WithPolicy(testPolicy(&delays)))
		res, err := w.PollInvoice(context.Background(), 1)
		require.NoError(t, err)
		require.Equal(t, st, res.Status)
		require.False(t, res.Granted)
		require.Zero(t, store.grants)
	}
}

func TestPollFailsClosed(t *testing.T) {
	var delays []time.Duration
	store := newFakeStore()
	client := &fakeClient{pollErrs: []error{ErrMalformedResponse}, polls: []Invoice{{Status: StatusPaid, Payload: "42"}}}
	w := NewWorkflow(client, store, testConfig, WithPolicy(testPolicy(&delays)))

	_, err := w.PollInvoice(context.Background(), 1)
	require.ErrorIs(t, err, ErrMalformedResponse)
	require.ErrorIs(t, err, ErrProviderUnavailable)
	require.Equal(t, 1, client.pollCalls, "malformed replies are not retried")
	require.Zero(t, store.grants)

	bad := &fakeClient{polls: []Invoice{{Status: StatusPaid, Payload: "not-a-user"}}}
	w = NewWorkflow(bad, store, testConfig, WithPolicy(testPolicy(&delays)))
	_, err = w.PollInvoice(context.Background(), 1)
	require.ErrorIs(t, err, ErrMalformedResponse)
	require.Zero(t, store.grants)
}

func TestPollRetriesTransientErrors(t *testing.T) {
	var delays []time.Duration
	store := newFakeStore()
	client := &fakeClient{
		pollErrs: []error{&APIError{Method: "getInvoices", Status: 503}, nil},
		polls:    []Invoice{{}, {Status: StatusPaid, Payload: "7"}},
	}
	w := NewWorkflow(client, store, testConfig, WithPolicy(testPolicy(&delays)))

	res, err := w.PollInvoice(context.Background(), 9)
	require.NoError(t, err)
	require.True(t, res.Granted)
	require.Equal(t, []time.Duration{time.Second}, delays)
}

func TestAdminIsAlwaysEntitled(t *testing.T) {
	w := NewWorkflow(&fakeClient{}, newFakeStore(), testConfig)
	require.True(t, w.IsEntitled(testConfig.AdminID))
	require.False(t, w.IsEntitled(2))
}
