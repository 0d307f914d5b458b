// Package crm pushes deal records into a Bitrix24 tenant over its REST API.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/config"
)

// Sentinel errors for CRM client failures.
var (
	ErrCRMUnreachable = errors.New("crm unreachable")
	ErrCRMTimeout     = errors.New("crm timeout")
	ErrCRMRejected    = errors.New("crm rejected request")
)

// Session holds the per-agent OAuth context for one CRM tenant. The REST base
// URL is derived from the session because the OAuth token-exchange host and
// the tenant's REST host can differ.
type Session struct {
	AccessToken    string `json:"access_token"`
	Domain         string `json:"domain"`
	ClientEndpoint string `json:"client_endpoint,omitempty"`
	ServerEndpoint string `json:"server_endpoint,omitempty"`
}

// Client is the interface for deal synchronization.
type Client interface {
	PushNewDeal(ctx context.Context, s Session, form DealForm) (int64, error)
	PushPlanSelection(ctx context.Context, s Session, dealID int64, sel PlanSelection) error
	GetDeal(ctx context.Context, s Session, dealID int64) (json.RawMessage, error)
	ListDeals(ctx context.Context, s Session, filter map[string]string) (json.RawMessage, error)
	CurrentUser(ctx context.Context, s Session) (json.RawMessage, error)
}

// HTTPClient implements Client against the Bitrix24 REST API.
type HTTPClient struct {
	defaultDomain string
	client        *http.Client
}

// NewHTTPClient creates a new CRM HTTP client. cfg.Domain is the fallback
// tenant when a session carries no endpoint of its own.
func NewHTTPClient(cfg config.CRMConfig) *HTTPClient {
	return &HTTPClient{
		defaultDomain: cfg.Domain,
		client:        &http.Client{Timeout: cfg.Timeout},
	}
}

// restBase resolves the REST base URL for a session, preferring the tenant
// REST endpoint over the OAuth proxy host.
func (c *HTTPClient) restBase(s Session) string {
	if s.ClientEndpoint != "" && !strings.Contains(s.ClientEndpoint, "oauth.bitrix") {
		return strings.TrimRight(s.ClientEndpoint, "/")
	}
	if s.Domain != "" {
		return "https://" + s.Domain + "/rest"
	}
	return "https://" + c.defaultDomain + "/rest"
}

// PushNewDeal creates a deal and then renames it to embed the assigned id.
// The rename is a second call because the id is only known after creation.
func (c *HTTPClient) PushNewDeal(ctx context.Context, s Session, form DealForm) (int64, error) {
	fields := mapFields(form)
	if _, ok := fields["TITLE"]; !ok {
		fields["TITLE"] = "Cotizacion"
	}

	result, err := c.call(ctx, s, "crm.deal.add.json", map[string]any{"fields": fields})
	if err != nil {
		return 0, err
	}

	var dealID int64
	if err := json.Unmarshal(result, &dealID); err != nil {
		return 0, fmt.Errorf("%w: deal id not numeric: %s", ErrCRMRejected, result)
	}

	title := fmt.Sprintf("%v #%d", fields["TITLE"], dealID)
	_, err = c.call(ctx, s, "crm.deal.update.json", map[string]any{
		"id":     dealID,
		"fields": map[string]any{"TITLE": title},
	})
	if err != nil {
		return 0, fmt.Errorf("deal %d created but title update failed: %w", dealID, err)
	}

	return dealID, nil
}

// PushPlanSelection writes the chosen plan's fields onto the deal and moves
// it to the preparation stage.
func (c *HTTPClient) PushPlanSelection(ctx context.Context, s Session, dealID int64, sel PlanSelection) error {
	_, err := c.call(ctx, s, "crm.deal.update.json", map[string]any{
		"id":     dealID,
		"fields": sel.fields(),
	})
	return err
}

func (c *HTTPClient) GetDeal(ctx context.Context, s Session, dealID int64) (json.RawMessage, error) {
	return c.call(ctx, s, "crm.deal.get.json", map[string]any{"id": dealID})
}

func (c *HTTPClient) ListDeals(ctx context.Context, s Session, filter map[string]string) (json.RawMessage, error) {
	return c.call(ctx, s, "crm.deal.list.json", map[string]any{"filter": filter})
}

func (c *HTTPClient) CurrentUser(ctx context.Context, s Session) (json.RawMessage, error) {
	return c.call(ctx, s, "user.current.json", map[string]any{})
}

// bitrixEnvelope is the REST response wrapper: result on success, error plus
// error_description otherwise.
type bitrixEnvelope struct {
	Result           json.RawMessage `json:"result"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func (c *HTTPClient) call(ctx context.Context, s Session, method string, params map[string]any) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/%s?auth=%s", c.restBase(s), method, url.QueryEscape(s.AccessToken))

	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding params: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	var env bitrixEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrCRMRejected, err)
	}
	if env.Error != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrCRMRejected, env.Error, env.ErrorDescription)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrCRMRejected, resp.StatusCode)
	}
	return env.Result, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCRMTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrCRMTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrCRMUnreachable, err)
}

var _ Client = (*HTTPClient)(nil)
