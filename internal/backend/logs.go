package backend

import (
	"context"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/policy"
)

// GetLogs returns the audit log of the current year. Admin only.
func (c *Context) GetLogs(ctx context.Context) ([]model.LogEntry, error) {
	if err := policy.RestrictToAdmin(&c.user, "Only admins can view logs"); err != nil {
		return nil, err
	}
	return c.b.store.ReadLog(ctx)
}
