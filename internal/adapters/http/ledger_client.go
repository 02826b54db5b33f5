package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/farmer/internal/domain"
	"github.com/bft-labs/farmer/internal/ports"
)

const (
	networkEndpoint = "/v1/network"
	farmsEndpoint   = "/v1/farms"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 4 << 10

// LedgerConfig identifies the ledger gateway and the farm owner.
type LedgerConfig struct {
	ServiceURL string
	AuthKey    string
	// ChainID is the network the wallet must be on. Empty accepts any.
	ChainID string
	Owner   string
}

// LedgerClient implements ports.FarmClient against the ledger gateway's
// JSON API. In trial mode the farm lives only in the local store.
type LedgerClient struct {
	config LedgerConfig
	client ports.HTTPClient
	store  ports.FarmStore
	logger ports.Logger
	now    func() time.Time

	mu    sync.RWMutex
	trial bool
	farm  *domain.Farm
}

// NewLedgerClient creates a ledger client. store backs trial mode.
func NewLedgerClient(config LedgerConfig, client ports.HTTPClient, store ports.FarmStore, logger ports.Logger) *LedgerClient {
	config.ServiceURL = strings.TrimRight(config.ServiceURL, "/")
	return &LedgerClient{
		config: config,
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

type networkResponse struct {
	ChainID string `json:"chain_id"`
}

type createFarmRequest struct {
	Owner   string         `json:"owner"`
	Charity domain.Charity `json:"charity"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Initialize checks the gateway is reachable and on the expected chain,
// then looks up the owner's farm. In trial mode there is nothing to check.
func (c *LedgerClient) Initialize(ctx context.Context) error {
	const op = "initialize"

	if c.IsTrial() {
		return nil
	}

	var network networkResponse
	if _, err := c.do(ctx, op, http.MethodGet, networkEndpoint, nil, &network); err != nil {
		return err
	}
	if c.config.ChainID != "" && network.ChainID != c.config.ChainID {
		return &domain.LedgerError{
			Code: domain.ErrCodeWrongNetwork,
			Op:   op,
			Err:  fmt.Errorf("gateway on chain %q, want %q", network.ChainID, c.config.ChainID),
		}
	}

	if c.config.Owner == "" {
		c.setFarm(nil)
		return nil
	}

	var farm domain.Farm
	status, err := c.do(ctx, op, http.MethodGet, c.farmPath(""), nil, &farm)
	if status == http.StatusNotFound {
		c.setFarm(nil)
		c.logger.Info("no farm for owner", ports.String("owner", c.config.Owner))
		return nil
	}
	if err != nil {
		return err
	}

	c.setFarm(&farm)
	c.logger.Info("farm loaded",
		ports.String("owner", farm.Owner),
		ports.Int("level", farm.Level),
	)
	return nil
}

// CreateFarm registers the owner's farm with its donation target.
func (c *LedgerClient) CreateFarm(ctx context.Context, charity domain.Charity) error {
	const op = "create_farm"

	if charity.Address == "" {
		return fmt.Errorf("%s: %w", op, domain.ErrMissingCharity)
	}

	var farm domain.Farm
	req := createFarmRequest{Owner: c.config.Owner, Charity: charity}
	if _, err := c.do(ctx, op, http.MethodPost, farmsEndpoint, req, &farm); err != nil {
		return err
	}

	c.setFarm(&farm)
	return nil
}

// Save persists the current farm, remotely or to the trial store.
func (c *LedgerClient) Save(ctx context.Context) error {
	const op = "save"

	farm, trial, err := c.current(op)
	if err != nil {
		return err
	}
	farm.SavedAt = c.now().UTC()

	if trial {
		if err := c.store.Save(ctx, farm); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.setFarm(&farm)
		return nil
	}

	var saved domain.Farm
	if _, err := c.do(ctx, op, http.MethodPut, c.farmPath(""), farm, &saved); err != nil {
		return err
	}
	c.setFarm(&saved)
	return nil
}

// LevelUp upgrades the farm. The stored level changes only after the
// upgrade is confirmed.
func (c *LedgerClient) LevelUp(ctx context.Context) error {
	const op = "level_up"

	farm, trial, err := c.current(op)
	if err != nil {
		return err
	}

	if trial {
		next := farm
		next.Level++
		next.SavedAt = c.now().UTC()
		if err := c.store.Save(ctx, next); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.setFarm(&next)
		return nil
	}

	var upgraded domain.Farm
	if _, err := c.do(ctx, op, http.MethodPost, c.farmPath("/level-up"), nil, &upgraded); err != nil {
		return err
	}
	c.setFarm(&upgraded)
	return nil
}

// EnterTrialMode switches to the local trial farm, creating a fresh one
// if the store holds none.
func (c *LedgerClient) EnterTrialMode() {
	farm, ok, err := c.store.Load(context.Background())
	if err != nil {
		c.logger.Warn("trial farm unreadable, starting over", ports.Err(err))
	}
	if err != nil || !ok {
		farm = domain.NewTrialFarm(c.config.Owner)
	}
	farm.Trial = true

	c.mu.Lock()
	c.trial = true
	c.farm = &farm
	c.mu.Unlock()

	c.logger.Info("trial mode enabled", ports.Int("level", farm.Level))
}

// IsTrial reports whether trial mode is active.
func (c *LedgerClient) IsTrial() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trial
}

// HasFarm reports whether the owner's farm is known.
func (c *LedgerClient) HasFarm() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.farm != nil
}

// Farm returns a copy of the current farm.
func (c *LedgerClient) Farm() (domain.Farm, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.farm == nil {
		return domain.Farm{}, false
	}
	return *c.farm, true
}

func (c *LedgerClient) current(op string) (domain.Farm, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.farm == nil {
		return domain.Farm{}, false, fmt.Errorf("%s: %w", op, domain.ErrNoFarm)
	}
	return *c.farm, c.trial, nil
}

func (c *LedgerClient) setFarm(farm *domain.Farm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.farm = farm
}

func (c *LedgerClient) farmPath(suffix string) string {
	return farmsEndpoint + "/" + url.PathEscape(c.config.Owner) + suffix
}

// do sends a JSON request and decodes a JSON response into out. An empty
// body is an error unless out is nil. The returned status is zero when no
// response was received.
func (c *LedgerClient) do(ctx context.Context, op, method, path string, in, out interface{}) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.ServiceURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("%s: create request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return 0, &domain.LedgerError{Code: domain.ErrCodeNoConnection, Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("ledger request",
		ports.String("op", op),
		ports.String("method", method),
		ports.String("path", path),
		ports.Int("status", resp.StatusCode),
		ports.String("request_id", requestID),
	)

	if resp.StatusCode/100 != 2 {
		return resp.StatusCode, statusError(op, resp)
	}

	if out != nil {
		err := json.NewDecoder(resp.Body).Decode(out)
		if errors.Is(err, io.EOF) {
			return resp.StatusCode, &domain.LedgerError{
				Code: domain.ErrCodeEmptyResponse,
				Op:   op,
				Err:  fmt.Errorf("status %d with no body", resp.StatusCode),
			}
		}
		if err != nil {
			return resp.StatusCode, fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return resp.StatusCode, nil
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	code := domain.ErrorCode(fmt.Sprintf("HTTP_%d", resp.StatusCode))
	detail := strings.TrimSpace(string(raw))

	var er errorResponse
	if json.Unmarshal(raw, &er) == nil {
		if er.Code != "" {
			code = domain.ErrorCode(er.Code)
		}
		if er.Message != "" {
			detail = er.Message
		}
	}

	return &domain.LedgerError{
		Code: code,
		Op:   op,
		Err:  fmt.Errorf("server returned %d: %s", resp.StatusCode, detail),
	}
}

var _ ports.FarmClient = (*LedgerClient)(nil)
