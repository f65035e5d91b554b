package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

const (
	pathTrucks        = "/trucks"
	pathExcavators    = "/excavators"
	pathOperators     = "/operators"
	pathMiningSites   = "/mining-sites"
	pathLoadingPoints = "/locations/loading-points"
	pathDumpingPoints = "/locations/dumping-points"
	pathRoadSegments  = "/locations/road-segments"
)

// maxPages stops a misbehaving meta.totalPages from looping forever.
const maxPages = 100

// listAll follows meta.totalPages until every page of path has been read.
func listAll[T any](ctx context.Context, c *Client, path string, filter url.Values) ([]T, error) {
	var all []T
	for page := 1; page <= maxPages; page++ {
		query := url.Values{}
		for k, v := range filter {
			query[k] = v
		}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", strconv.Itoa(c.pageLimit))

		var items []T
		env, err := c.do(ctx, call{method: http.MethodGet, path: path, query: query, out: &items})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if env.Meta == nil || page >= env.Meta.TotalPages || len(items) == 0 {
			break
		}
	}
	return all, nil
}

func (c *Client) ListTrucks(ctx context.Context) ([]model.Truck, error) {
	return listAll[model.Truck](ctx, c, pathTrucks, nil)
}

func (c *Client) ListExcavators(ctx context.Context) ([]model.Excavator, error) {
	return listAll[model.Excavator](ctx, c, pathExcavators, nil)
}

func (c *Client) ListOperators(ctx context.Context) ([]model.Operator, error) {
	return listAll[model.Operator](ctx, c, pathOperators, nil)
}

func (c *Client) ListMiningSites(ctx context.Context) ([]model.MiningSite, error) {
	return listAll[model.MiningSite](ctx, c, pathMiningSites, nil)
}

func (c *Client) ListLoadingPoints(ctx context.Context) ([]model.LoadingPoint, error) {
	return listAll[model.LoadingPoint](ctx, c, pathLoadingPoints, nil)
}

func (c *Client) ListDumpingPoints(ctx context.Context) ([]model.DumpingPoint, error) {
	return listAll[model.DumpingPoint](ctx, c, pathDumpingPoints, nil)
}

func (c *Client) ListRoadSegments(ctx context.Context) ([]model.RoadSegment, error) {
	return listAll[model.RoadSegment](ctx, c, pathRoadSegments, nil)
}

// LoadCatalog reads every master list a draft session needs. The lists are
// fetched one after another and the first failure aborts the load.
func (c *Client) LoadCatalog(ctx context.Context) (*model.Catalog, error) {
	var (
		catalog model.Catalog
		err     error
	)
	if catalog.Trucks, err = c.ListTrucks(ctx); err != nil {
		return nil, fmt.Errorf("load trucks: %w", err)
	}
	if catalog.Excavators, err = c.ListExcavators(ctx); err != nil {
		return nil, fmt.Errorf("load excavators: %w", err)
	}
	if catalog.Operators, err = c.ListOperators(ctx); err != nil {
		return nil, fmt.Errorf("load operators: %w", err)
	}
	if catalog.MiningSites, err = c.ListMiningSites(ctx); err != nil {
		return nil, fmt.Errorf("load mining sites: %w", err)
	}
	if catalog.LoadingPoints, err = c.ListLoadingPoints(ctx); err != nil {
		return nil, fmt.Errorf("load loading points: %w", err)
	}
	if catalog.DumpingPoints, err = c.ListDumpingPoints(ctx); err != nil {
		return nil, fmt.Errorf("load dumping points: %w", err)
	}
	if catalog.RoadSegments, err = c.ListRoadSegments(ctx); err != nil {
		return nil, fmt.Errorf("load road segments: %w", err)
	}
	return &catalog, nil
}
