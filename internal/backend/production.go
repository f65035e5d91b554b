package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

const pathProduction = "/production"

// ListProduction returns the records matching the day, shift and site of query.
// Empty query fields are not sent.
func (c *Client) ListProduction(ctx context.Context, query model.ProductionQuery) ([]model.ProductionRecord, error) {
	filter := url.Values{}
	if query.Date != "" {
		filter.Set("startDate", query.Date)
		filter.Set("endDate", query.Date)
	}
	if query.Shift != "" {
		filter.Set("shift", string(query.Shift))
	}
	if query.MiningSiteID != "" {
		filter.Set("miningSiteId", query.MiningSiteID)
	}
	records, err := listAll[model.ProductionRecord](ctx, c, pathProduction, filter)
	if err != nil {
		return nil, fmt.Errorf("list production: %w", err)
	}
	return records, nil
}

func (c *Client) GetProduction(ctx context.Context, id string) (*model.ProductionRecord, error) {
	var record model.ProductionRecord
	if err := c.get(ctx, pathProduction+"/"+escape(id), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) CreateProduction(ctx context.Context, record model.ProductionRecord) (*model.ProductionRecord, error) {
	var saved model.ProductionRecord
	if err := c.send(ctx, http.MethodPost, pathProduction, record, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) UpdateProduction(ctx context.Context, id string, record model.ProductionRecord) (*model.ProductionRecord, error) {
	var saved model.ProductionRecord
	if err := c.send(ctx, http.MethodPut, pathProduction+"/"+escape(id), record, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}
