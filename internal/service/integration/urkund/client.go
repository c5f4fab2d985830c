// Package urkund is a client for the Urkund plagiarism detection REST API.
package urkund

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/config"
)

const (
	DefaultBaseURL = "https://secure.urkund.com/api/"
	defaultTimeout = 20 * time.Second
	language       = "en-US"
)

type Client interface {
	// Suffix is the unit address suffix appended to local parts to form receiver addresses.
	Suffix() string

	GetUnit(ctx context.Context, unitID int) (*Unit, error)
	GetOrganizations(ctx context.Context, unitID int) ([]Organization, error)
	GetUnits(ctx context.Context) ([]Unit, error)

	CreateReceiver(ctx context.Context, fullName, email string) (*Receiver, error)
	UpdateReceiver(ctx context.Context, fullName, email string) (*Receiver, error)
	DeleteReceiver(ctx context.Context, analysisAddress string) error
	GetReceiver(ctx context.Context, analysisAddress string) (*Receiver, error)
	GetReceiverByEmail(ctx context.Context, email string) (*Receiver, error)
	GetReceivers(ctx context.Context) ([]Receiver, error)
	EnsureReceiver(ctx context.Context, fullName, email string) (*Receiver, error)

	Submit(ctx context.Context, upload Upload) (*Submission, error)
	Status(ctx context.Context, analysisAddress, externalID string) ([]Submission, error)
}

type client struct {
	baseURL         string
	user            string
	password        string
	unit            int
	organization    int
	subOrganization int
	suffix          string
	httpClient      *http.Client
	logger          zerolog.Logger
}

// New builds a client and checks the configured unit, organization and
// sub-organization against the account. A mismatch is fatal.
func New(ctx context.Context, cfg config.UrkundConfig, logger zerolog.Logger) (Client, error) {
	c := newClient(cfg, logger)
	if err := c.reconcile(ctx); err != nil {
		return nil, err
	}

	c.logger.Info().
		Int("unit", c.unit).
		Int("organization", c.organization).
		Int("sub_organization", c.subOrganization).
		Str("suffix", c.suffix).
		Msg("Urkund client initialized")

	return c, nil
}

func newClient(cfg config.UrkundConfig, logger zerolog.Logger) *client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &client{
		baseURL:         baseURL,
		user:            cfg.User,
		password:        cfg.Password,
		unit:            cfg.Unit,
		organization:    cfg.Organization,
		subOrganization: cfg.SubOrganization,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *client) Suffix() string {
	return c.suffix
}

func (c *client) reconcile(ctx context.Context) error {
	unit, err := c.GetUnit(ctx, c.unit)
	if err != nil {
		return fmt.Errorf("failed to get unit %d: %w", c.unit, err)
	}
	if unit.ID != c.unit || unit.Suffix == "" {
		return fmt.Errorf("%w: unit %d not found", ErrUnitAndOrganizationNotValid, c.unit)
	}
	c.suffix = unit.Suffix

	if c.organization == 0 {
		return nil
	}

	organizations := unit.Organizations
	if organizations == nil {
		organizations, err = c.GetOrganizations(ctx, c.unit)
		if err != nil {
			return fmt.Errorf("failed to get organizations of unit %d: %w", c.unit, err)
		}
	}

	var org *Organization
	for i := range organizations {
		if organizations[i].ID == c.organization {
			org = &organizations[i]
			break
		}
	}
	if org == nil {
		return fmt.Errorf("%w: organization %d not in unit %d", ErrUnitAndOrganizationNotValid, c.organization, c.unit)
	}

	if c.subOrganization == 0 {
		return nil
	}
	for _, sub := range org.SubOrganizations {
		if sub.ID == c.subOrganization {
			return nil
		}
	}
	return fmt.Errorf("%w: sub-organization %d not in organization %d", ErrUnitAndOrganizationNotValid, c.subOrganization, c.organization)
}

// do sends one authenticated request and decodes a 200/202 JSON body into out.
func (c *client) do(ctx context.Context, method, path string, body []byte, headers map[string]string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.user, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", language)
	req.Header.Set("Content-Language", language)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &Error{Kind: KindTimeout, Err: err}
		}
		return fmt.Errorf("failed to call urkund: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return &Error{Kind: KindTimeout, Status: resp.StatusCode, Err: err}
		}
		return fmt.Errorf("failed to read urkund response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Urkund request completed")

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		if out == nil || len(bytes.TrimSpace(payload)) == 0 {
			return nil
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return &Error{Kind: KindInvalidResponse, Status: resp.StatusCode, Body: string(payload), Err: err}
		}
		return nil
	default:
		return &Error{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Body: string(payload)}
	}
}

func (c *client) doJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, method, path, body, map[string]string{"Content-Type": "application/json"}, out)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// quote percent-encodes s for use in a path, leaving unreserved bytes and '/' as is.
func quote(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9',
			ch == '-', ch == '.', ch == '_', ch == '~', ch == '/':
			b.WriteByte(ch)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[ch>>4])
			b.WriteByte(hex[ch&0x0f])
		}
	}
	return b.String()
}
