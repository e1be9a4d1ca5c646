package tasks

import (
	"context"
	"errors"
	"fmt"
)

// MaintenanceTask runs the expiration sweep followed by the digest update.
// The digest is refreshed even when the sweep fails.
type MaintenanceTask struct {
	Task
	expire *ExpireListingsTask
	digest *UpdateDigestTask
}

func NewMaintenanceTask(expire *ExpireListingsTask, digest *UpdateDigestTask) *MaintenanceTask {
	return &MaintenanceTask{
		Task:   NewTask(TaskTypeMaintenance, LaneMaintenance),
		expire: expire,
		digest: digest,
	}
}

func (t *MaintenanceTask) Execute(ctx context.Context) error {
	t.expire.Start()
	expireErr := t.expire.Execute(ctx)
	if expireErr != nil {
		expireErr = fmt.Errorf("expiration sweep: %w", expireErr)
	}

	if err := ctx.Err(); err != nil {
		return errors.Join(expireErr, err)
	}

	t.digest.Start()
	digestErr := t.digest.Execute(ctx)
	if digestErr != nil {
		digestErr = fmt.Errorf("digest update: %w", digestErr)
	}

	return errors.Join(expireErr, digestErr)
}
