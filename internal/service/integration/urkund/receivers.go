package urkund

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// receiverBody builds the create/update payload. Updates always carry the
// organization fields, creates only when an organization is configured.
func (c *client) receiverBody(fullName, email string, update bool) map[string]any {
	body := map[string]any{
		"UnitId":       c.unit,
		"FullName":     fullName,
		"EmailAddress": email,
	}
	if update || c.organization != 0 {
		body["OrganizationId"] = optionalID(c.organization)
		body["SubOrganizationId"] = optionalID(c.subOrganization)
	}
	return body
}

func optionalID(id int) any {
	if id == 0 {
		return nil
	}
	return id
}

func (c *client) CreateReceiver(ctx context.Context, fullName, email string) (*Receiver, error) {
	var r Receiver
	if err := c.doJSON(ctx, http.MethodPost, "receivers", c.receiverBody(fullName, email, false), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *client) UpdateReceiver(ctx context.Context, fullName, email string) (*Receiver, error) {
	var r Receiver
	if err := c.doJSON(ctx, http.MethodPut, "receivers", c.receiverBody(fullName, email, true), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *client) DeleteReceiver(ctx context.Context, analysisAddress string) error {
	return c.do(ctx, http.MethodDelete, "receivers/"+quote(analysisAddress), nil, nil, nil)
}

func (c *client) GetReceiver(ctx context.Context, analysisAddress string) (*Receiver, error) {
	var r Receiver
	if err := c.do(ctx, http.MethodGet, "receivers/"+quote(analysisAddress), nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReceiverByEmail looks up the receiver whose analysis address is the
// local part of email followed by the unit suffix.
func (c *client) GetReceiverByEmail(ctx context.Context, email string) (*Receiver, error) {
	return c.GetReceiver(ctx, c.analysisAddress(email))
}

func (c *client) analysisAddress(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local + c.suffix
}

func (c *client) GetReceivers(ctx context.Context) ([]Receiver, error) {
	var rs []Receiver
	if err := c.do(ctx, http.MethodGet, "receivers", nil, nil, &rs); err != nil {
		return nil, err
	}
	return rs, nil
}

// EnsureReceiver returns the receiver for email, registering it when Urkund does not know it.
func (c *client) EnsureReceiver(ctx context.Context, fullName, email string) (*Receiver, error) {
	r, err := c.GetReceiverByEmail(ctx, email)
	if err == nil {
		return r, nil
	}
	if !IsNotFound(err) {
		return nil, fmt.Errorf("failed to get receiver %s: %w", email, err)
	}

	c.logger.Info().
		Str("email", email).
		Msg("Receiver not found, creating it")

	r, err = c.CreateReceiver(ctx, fullName, email)
	if err != nil {
		return nil, fmt.Errorf("failed to create receiver %s: %w", email, err)
	}
	return r, nil
}
