package urkund

import (
	"context"
	"net/http"
	"strconv"
)

func (c *client) GetUnit(ctx context.Context, unitID int) (*Unit, error) {
	var unit Unit
	if err := c.do(ctx, http.MethodGet, "units/"+strconv.Itoa(unitID), nil, nil, &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

func (c *client) GetOrganizations(ctx context.Context, unitID int) ([]Organization, error) {
	var orgs []Organization
	if err := c.do(ctx, http.MethodGet, "units/"+strconv.Itoa(unitID)+"/organizations", nil, nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (c *client) GetUnits(ctx context.Context) ([]Unit, error) {
	var units []Unit
	if err := c.do(ctx, http.MethodGet, "units", nil, nil, &units); err != nil {
		return nil, err
	}
	return units, nil
}
