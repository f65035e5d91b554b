package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nurpe/minefleet-dispatch/internal/model"
)

const pathHauling = "/hauling"

type HaulingFilter struct {
	Search      string
	Shift       model.Shift
	Status      model.HaulingStatus
	StartDate   string
	EndDate     string
	TruckID     string
	ExcavatorID string
}

func (f HaulingFilter) values() url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("search", f.Search)
	set("shift", string(f.Shift))
	set("status", string(f.Status))
	set("startDate", f.StartDate)
	set("endDate", f.EndDate)
	set("truckId", f.TruckID)
	set("excavatorId", f.ExcavatorID)
	return q
}

// ActiveHauling returns activities the backend currently treats as in progress.
func (c *Client) ActiveHauling(ctx context.Context) ([]model.HaulingActivity, error) {
	var activities []model.HaulingActivity
	if err := c.get(ctx, pathHauling+"/active", nil, &activities); err != nil {
		return nil, fmt.Errorf("active hauling: %w", err)
	}
	return activities, nil
}

func (c *Client) ListHauling(ctx context.Context, filter HaulingFilter) ([]model.HaulingActivity, error) {
	activities, err := listAll[model.HaulingActivity](ctx, c, pathHauling, filter.values())
	if err != nil {
		return nil, fmt.Errorf("list hauling: %w", err)
	}
	return activities, nil
}

// ActivityNumbersForDay lists the HA-YYYYMMDD-* numbers already used on day.
func (c *Client) ActivityNumbersForDay(ctx context.Context, day time.Time) ([]string, error) {
	prefix := "HA-" + day.Format("20060102") + "-"
	activities, err := c.ListHauling(ctx, HaulingFilter{Search: prefix})
	if err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(activities))
	for _, a := range activities {
		if strings.HasPrefix(a.ActivityNumber, prefix) {
			numbers = append(numbers, a.ActivityNumber)
		}
	}
	return numbers, nil
}

func (c *Client) CreateHauling(ctx context.Context, input model.HaulingInput) (*model.HaulingActivity, error) {
	var created model.HaulingActivity
	if err := c.send(ctx, http.MethodPost, pathHauling, input, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateHauling(ctx context.Context, id string, input model.HaulingInput) (*model.HaulingActivity, error) {
	var updated model.HaulingActivity
	if err := c.send(ctx, http.MethodPut, pathHauling+"/"+escape(id), input, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) QuickUpdateHauling(ctx context.Context, id string, update model.QuickUpdate) (*model.HaulingActivity, error) {
	var updated model.HaulingActivity
	if err := c.send(ctx, http.MethodPatch, pathHauling+"/"+escape(id)+"/quick-update", update, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteHauling(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, pathHauling+"/"+escape(id), nil, nil)
}

func (c *Client) HaulingByIDs(ctx context.Context, ids []string) ([]model.HaulingActivity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var activities []model.HaulingActivity
	body := map[string][]string{"ids": ids}
	if err := c.send(ctx, http.MethodPost, pathHauling+"/by-ids", body, &activities); err != nil {
		return nil, fmt.Errorf("hauling by ids: %w", err)
	}
	return activities, nil
}

func (c *Client) CalculateAchievement(ctx context.Context, query model.AchievementQuery) (*model.Achievement, error) {
	var achievement model.Achievement
	if err := c.send(ctx, http.MethodPost, pathHauling+"/calculate-achievement", query, &achievement); err != nil {
		return nil, fmt.Errorf("calculate achievement: %w", err)
	}
	return &achievement, nil
}
