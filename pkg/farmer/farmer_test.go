package farmer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bft-labs/farmer/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubClient is a FarmClient whose outcomes are set per test.
type stubClient struct {
	mu      sync.Mutex
	initErr error
	hasFarm bool
	trial   bool
	level   int
}

func (c *stubClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErr
}

func (c *stubClient) CreateFarm(ctx context.Context, charity Charity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasFarm = true
	c.level = 1
	return nil
}

func (c *stubClient) Save(ctx context.Context) error { return nil }

func (c *stubClient) LevelUp(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level++
	return nil
}

func (c *stubClient) EnterTrialMode() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trial = true
}

func (c *stubClient) IsTrial() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trial
}

func (c *stubClient) HasFarm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasFarm
}

type recordingHandler struct {
	BaseEventHandler

	mu          sync.Mutex
	transitions []TransitionEvent
	invocations []InvocationEvent
	ignored     []IgnoredEvent
}

func (h *recordingHandler) OnTransition(e TransitionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transitions = append(h.transitions, e)
}

func (h *recordingHandler) OnInvocation(e InvocationEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invocations = append(h.invocations, e)
}

func (h *recordingHandler) OnIgnored(e IgnoredEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ignored = append(h.ignored, e)
}

func (h *recordingHandler) transitionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.transitions)
}

func startFarmer(t *testing.T, client FarmClient, opts ...Option) *Farmer {
	t.Helper()
	opts = append([]Option{WithFarmClient(client)}, opts...)
	f, err := New(Config{}, opts...)
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))
	t.Cleanup(func() {
		if f.Status() == RunRunning {
			_ = f.Stop()
		}
	})
	return f
}

func waitState(t *testing.T, f *Farmer, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.Snapshot().State == want
	}, 2*time.Second, 5*time.Millisecond, "state never reached %s (now %s)", want, f.Snapshot().State)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		opts    []Option
		wantErr bool
	}{
		{"builtin client needs service url", Config{StateDir: "/tmp"}, nil, true},
		{"builtin client needs state dir", Config{ServiceURL: "http://x"}, nil, true},
		{"builtin client", Config{ServiceURL: "http://x/", StateDir: t.TempDir()}, nil, false},
		{"custom client", Config{}, []Option{WithFarmClient(&stubClient{})}, false},
		{"negative op timeout", Config{OperationTimeout: -1}, []Option{WithFarmClient(&stubClient{})}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.cfg, tt.opts...)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StateInitial, f.Snapshot().State)
			assert.Equal(t, RunIdle, f.Status())
			assert.NotEmpty(t, f.ID())
		})
	}
}

func TestFarmer_HappyPath(t *testing.T) {
	client := &stubClient{}
	f := startFarmer(t, client)

	require.NoError(t, f.GetStarted())
	waitState(t, f, StateRegistering)

	require.NoError(t, f.Donate(Charity{Address: "0xc0ffee", Name: "Seeds"}))
	waitState(t, f, StateFarming)

	require.NoError(t, f.Upgrade())
	waitState(t, f, StateFarming)
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.level == 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.Save())
	waitState(t, f, StateFarming)
	assert.Equal(t, ErrCodeNone, f.Snapshot().ErrorCode)
}

func TestFarmer_FailureAndTrial(t *testing.T) {
	client := &stubClient{initErr: &LedgerError{Code: ErrCodeWrongNetwork, Op: "initialize"}}
	f := startFarmer(t, client)

	require.NoError(t, f.GetStarted())
	waitState(t, f, StateFailure)
	assert.Equal(t, ErrCodeWrongNetwork, f.Snapshot().ErrorCode)

	require.NoError(t, f.Trial())
	waitState(t, f, StateFarming)
	assert.True(t, client.IsTrial())
	assert.Equal(t, ErrCodeNone, f.Snapshot().ErrorCode)
}

func TestFarmer_NetworkChangedRetries(t *testing.T) {
	client := &stubClient{initErr: &LedgerError{Code: ErrCodeNoConnection, Op: "initialize"}}
	f := startFarmer(t, client)

	require.NoError(t, f.GetStarted())
	waitState(t, f, StateFailure)

	client.mu.Lock()
	client.initErr = nil
	client.hasFarm = true
	client.mu.Unlock()

	require.NoError(t, f.NetworkChanged())
	waitState(t, f, StateFarming)
}

func TestFarmer_Lifecycle(t *testing.T) {
	f, err := New(Config{}, WithFarmClient(&stubClient{}))
	require.NoError(t, err)

	assert.ErrorIs(t, f.Stop(), ErrNotRunning)
	assert.ErrorIs(t, f.GetStarted(), ErrNotRunning)

	require.NoError(t, f.Start(context.Background()))
	assert.Equal(t, RunRunning, f.Status())
	assert.ErrorIs(t, f.Start(context.Background()), ErrAlreadyRunning)

	require.NoError(t, f.Stop())
	assert.Equal(t, RunStopped, f.Status())
	assert.ErrorIs(t, f.Start(context.Background()), ErrAlreadyStopped)
	assert.ErrorIs(t, f.Save(), ErrNotRunning)
}

func TestFarmer_SendRejectsInternalEvents(t *testing.T) {
	f := startFarmer(t, &stubClient{})

	_, ok := ParseEventKind("done")
	assert.False(t, ok)

	err := f.Send(domain.Event{Kind: domain.EventDone, Seq: 1})
	assert.ErrorIs(t, err, ErrInternalEvent)
	assert.Equal(t, StateInitial, f.Snapshot().State)
}

func TestFarmer_Subscribe(t *testing.T) {
	f := startFarmer(t, &stubClient{hasFarm: true})

	var mu sync.Mutex
	var seen []State
	unsubscribe := f.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.State)
	})
	defer unsubscribe()

	require.NoError(t, f.GetStarted())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateInitial, StateLoading, StateFarming}, seen)
}

func TestFarmer_EventHandler(t *testing.T) {
	handler := &recordingHandler{}
	f := startFarmer(t, &stubClient{}, WithEventHandler(handler))

	require.NoError(t, f.Save()) // no handler in initial
	require.NoError(t, f.GetStarted())
	require.Eventually(t, func() bool { return handler.transitionCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Equal(t, TransitionEvent{From: StateInitial, To: StateLoading, Event: EventGetStarted}, handler.transitions[0])
	assert.Equal(t, StateRegistering, handler.transitions[1].To)
	require.Len(t, handler.invocations, 1)
	assert.Equal(t, "initialize", handler.invocations[0].Operation)
	assert.NoError(t, handler.invocations[0].Error)
	assert.Equal(t, []IgnoredEvent{{State: StateInitial, Event: EventSave}}, handler.ignored)
}

func TestFarmer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := startFarmer(t, &stubClient{}, WithMetrics(reg))

	require.NoError(t, f.GetStarted())
	waitState(t, f, StateRegistering)

	require.Eventually(t, func() bool {
		n, err := testutil.GatherAndCount(reg, "farmer_transitions_total")
		return err == nil && n == 2
	}, 2*time.Second, 5*time.Millisecond)

	_, err := New(Config{}, WithFarmClient(&stubClient{}), WithMetrics(reg))
	assert.Error(t, err, "second registration must fail")
}

func TestFarmer_Farm(t *testing.T) {
	f := startFarmer(t, &stubClient{})
	_, ok := f.Farm()
	assert.False(t, ok, "stub client does not expose a farm")
}

// TestFarmer_BuiltinLedgerClient runs the default ledger client against a
// fake gateway.
func TestFarmer_BuiltinLedgerClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /v1/network":
			_ = json.NewEncoder(w).Encode(map[string]string{"chain_id": "farm-1"})
		case "GET /v1/farms/0xowner":
			_ = json.NewEncoder(w).Encode(Farm{Owner: "0xowner", Level: 3})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f, err := New(Config{
		ServiceURL: srv.URL,
		ChainID:    "farm-1",
		Owner:      "0xowner",
		StateDir:   t.TempDir(),
	})
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))
	defer f.Stop()

	require.NoError(t, f.GetStarted())
	waitState(t, f, StateFarming)

	farm, ok := f.Farm()
	require.True(t, ok)
	assert.Equal(t, 3, farm.Level)
}

func TestFarmer_StopCancelsParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f, err := New(Config{}, WithFarmClient(&stubClient{}))
	require.NoError(t, err)
	require.NoError(t, f.Start(ctx))

	cancel()
	// The event loop exits with the parent context; Stop still succeeds.
	assert.Eventually(t, func() bool {
		return errors.Is(f.Save(), ErrNotRunning)
	}, 2*time.Second, 5*time.Millisecond)
	assert.NoError(t, f.Stop())
}
