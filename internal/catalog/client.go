// Package catalog talks to the external quoting catalog: client-credentials
// token endpoint, person/vehicle lookups, and per-insurer premium quotes.
package catalog

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
	"sync"
	"time"

	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/config"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/validate"
)

// Sentinel errors for catalog client failures.
var (
	ErrCatalogUnreachable    = errors.New("catalog unreachable")
	ErrCatalogTimeout        = errors.New("catalog timeout")
	ErrTokenUnavailable      = errors.New("catalog token unavailable")
	ErrUpstreamRejected      = errors.New("catalog rejected request")
	ErrBadUpstreamShape      = errors.New("unexpected catalog response shape")
	ErrInvalidIdentification = errors.New("invalid identification number")
)

// Refresh the token slightly before the advertised expiry.
const tokenExpiryMargin = 30 * time.Second

// Client is the interface for the quoting catalog.
type Client interface {
	LookupPerson(ctx context.Context, cedula string) (*Person, error)
	LookupVehicle(ctx context.Context, placa string) (*Vehicle, error)
	QuoteInsurer(ctx context.Context, insurerKey string, req models.QuoteRequest) (*models.InsurerQuote, error)
}

// Person is the catalog's person record for a national ID.
type Person struct {
	Cedula          string `json:"cedula"`
	Nombre          string `json:"nombre"`
	FechaNacimiento string `json:"fechaNacimiento"`
	Genero          string `json:"genero"`
	EstadoCivil     string `json:"estadoCivil"`
	Ciudad          string `json:"ciudad"`
}

// Vehicle is the catalog's vehicle record for a plate.
type Vehicle struct {
	Placa  string  `json:"placa"`
	Marca  string  `json:"marca"`
	Modelo string  `json:"modelo"`
	Anio   int     `json:"anio"`
	Avaluo float64 `json:"avaluo"`
	Uso    string  `json:"uso"`
}

// HTTPClient implements Client against the catalog's HTTP API. The bearer
// token is owned by the client and refreshed lazily under a mutex; expiry is
// checked on every use rather than relying on ambient state.
type HTTPClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewHTTPClient creates a new catalog HTTP client.
func NewHTTPClient(cfg config.CatalogConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		client:       &http.Client{Timeout: cfg.Timeout},
	}
}

// getToken returns a cached bearer token, requesting a new one from the token
// endpoint when the cached token is within the expiry margin.
func (c *HTTPClient) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpiryMargin)) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint status %d", ErrTokenUnavailable, resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token", ErrTokenUnavailable)
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

// LookupPerson resolves a national ID in the catalog. The checksum is
// validated locally before any network call. A missing person returns
// (nil, nil) rather than an error.
func (c *HTTPClient) LookupPerson(ctx context.Context, cedula string) (*Person, error) {
	if !validate.Cedula(cedula) {
		return nil, ErrInvalidIdentification
	}

	data, err := c.post(ctx, "/comparator/api/catalogs/person",
		map[string]string{"identification": cedula})
	if err != nil {
		if errors.Is(err, ErrUpstreamRejected) {
			return nil, nil
		}
		return nil, err
	}

	var p Person
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: person payload: %v", ErrBadUpstreamShape, err)
	}
	if p.Cedula == "" {
		p.Cedula = cedula
	}
	return &p, nil
}

// LookupVehicle resolves a plate in the catalog. A missing vehicle returns
// (nil, nil) rather than an error.
func (c *HTTPClient) LookupVehicle(ctx context.Context, placa string) (*Vehicle, error) {
	placa = strings.ToUpper(strings.TrimSpace(placa))
	if !validate.Plate(placa) {
		return nil, ErrInvalidIdentification
	}

	data, err := c.post(ctx, "/comparator/api/catalogs/vehicle-plate",
		map[string]string{"plate": placa})
	if err != nil {
		if errors.Is(err, ErrUpstreamRejected) {
			return nil, nil
		}
		return nil, err
	}

	var v Vehicle
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: vehicle payload: %v", ErrBadUpstreamShape, err)
	}
	if v.Placa == "" {
		v.Placa = placa
	}
	return &v, nil
}

// QuoteInsurer POSTs a quote request to the insurer-specific sub-path and
// decodes the typed quote payload. Loose or empty payload shapes fail with
// ErrBadUpstreamShape instead of silently defaulting.
func (c *HTTPClient) QuoteInsurer(ctx context.Context, insurerKey string, req models.QuoteRequest) (*models.InsurerQuote, error) {
	data, err := c.post(ctx, "/comparator/api/vehicle/"+url.PathEscape(insurerKey), req)
	if err != nil {
		return nil, err
	}

	var q models.InsurerQuote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("%w: quote payload: %v", ErrBadUpstreamShape, err)
	}
	if q.Plan == "" && q.PrimaTotal == 0 {
		return nil, fmt.Errorf("%w: quote payload missing plan and premium", ErrBadUpstreamShape)
	}
	if q.Aseguradora == "" {
		q.Aseguradora = insurerKey
	}
	return &q, nil
}

// catalogEnvelope is the {status, message, data} wrapper every catalog
// endpoint responds with. status 200 means success; anything else carries
// an upstream error message.
type catalogEnvelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *HTTPClient) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamRejected, resp.StatusCode)
	}

	var env catalogEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadUpstreamShape, err)
	}
	if env.Status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamRejected, env.Message)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fmt.Errorf("%w: empty data", ErrUpstreamRejected)
	}
	return env.Data, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCatalogTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrCatalogTimeout, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrCatalogUnreachable, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
