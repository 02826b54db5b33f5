package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/farmer/pkg/farmer"
)

// scriptedClient records the charity it was asked to create.
type scriptedClient struct {
	mu      sync.Mutex
	charity farmer.Charity
	farm    bool
}

func (c *scriptedClient) Initialize(context.Context) error { return nil }

func (c *scriptedClient) CreateFarm(_ context.Context, charity farmer.Charity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.charity = charity
	c.farm = true
	return nil
}

func (c *scriptedClient) Save(context.Context) error    { return nil }
func (c *scriptedClient) LevelUp(context.Context) error { return nil }
func (c *scriptedClient) EnterTrialMode()               {}
func (c *scriptedClient) IsTrial() bool                 { return false }

func (c *scriptedClient) HasFarm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.farm
}

func newConsole(t *testing.T, client farmer.FarmClient) (*console, *bytes.Buffer, *farmer.Farmer) {
	t.Helper()
	f, err := farmer.New(farmer.Config{}, farmer.WithFarmClient(client))
	require.NoError(t, err)
	require.NoError(t, f.Start(context.Background()))
	t.Cleanup(func() { _ = f.Stop() })

	var out bytes.Buffer
	return &console{f: f, out: &out}, &out, f
}

func waitState(t *testing.T, f *farmer.Farmer, want farmer.State) {
	t.Helper()
	require.Eventually(t, func() bool { return f.Snapshot().State == want },
		2*time.Second, 5*time.Millisecond)
}

func TestConsole_Handle(t *testing.T) {
	client := &scriptedClient{}
	c, out, f := newConsole(t, client)

	require.NoError(t, c.handle("start"))
	waitState(t, f, farmer.StateRegistering)

	assert.Error(t, c.handle("donate"))
	require.NoError(t, c.handle("donate 0xc0ffee Seed Bank"))
	waitState(t, f, farmer.StateFarming)

	client.mu.Lock()
	assert.Equal(t, farmer.Charity{Address: "0xc0ffee", Name: "Seed Bank"}, client.charity)
	client.mu.Unlock()

	require.NoError(t, c.handle("STATUS"))
	assert.Contains(t, out.String(), "state=farming")

	require.NoError(t, c.handle("   "))
	assert.ErrorIs(t, c.handle("quit"), errQuit)
	assert.Error(t, c.handle("plant"))
}

func TestConsole_Help(t *testing.T) {
	c, out, _ := newConsole(t, &scriptedClient{})

	require.NoError(t, c.handle("help"))
	for _, cmd := range []string{"start", "donate", "save", "upgrade", "trial", "network", "status", "quit"} {
		assert.Contains(t, out.String(), cmd)
	}
}

func TestConsole_Run(t *testing.T) {
	client := &scriptedClient{}
	c, out, f := newConsole(t, client)

	in := strings.NewReader("start\nbogus\nquit\nsave\n")
	err := c.run(context.Background(), in)
	assert.True(t, errors.Is(err, errQuit))
	assert.Contains(t, out.String(), `error: unknown command "bogus"`)
	waitState(t, f, farmer.StateRegistering)
}

func TestConsole_RunEndsOnEOF(t *testing.T) {
	c, _, _ := newConsole(t, &scriptedClient{})
	assert.ErrorIs(t, c.run(context.Background(), strings.NewReader("status\n")), errQuit)
}

func TestServe_EOFStopsMetricsServer(t *testing.T) {
	c, _, _ := newConsole(t, &scriptedClient{})
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), c, strings.NewReader("status\n"), srv, zerolog.Nop()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve kept running after input closed")
	}
}

func TestServe_WithoutMetrics(t *testing.T) {
	c, _, _ := newConsole(t, &scriptedClient{})
	assert.NoError(t, serve(context.Background(), c, strings.NewReader("quit\n"), nil, zerolog.Nop()))
}

func TestConsole_RunEndsOnCancel(t *testing.T) {
	c, _, _ := newConsole(t, &scriptedClient{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A reader that never returns must not block run.
	r, w := io.Pipe()
	defer w.Close()
	assert.NoError(t, c.run(ctx, r))
}
