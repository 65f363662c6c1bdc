package controlplane

import (
	"context"

	"github.com/semmidev/phylax-agent/internal/domain"
)

// FetchSchedules returns the server's schedule entries in server order.
func (c *Client) FetchSchedules(ctx context.Context) ([]domain.ScheduleEntry, error) {
	var entries []domain.ScheduleEntry
	if err := c.getJSON(ctx, c.endpoint(schedulesPath), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
