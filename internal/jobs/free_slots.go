package jobs

import (
	"context"
	"time"

	"github.com/Spok95/volunteer-slots/internal/ctxutil"
	"github.com/Spok95/volunteer-slots/internal/metrics"
	"github.com/Spok95/volunteer-slots/internal/models"
)

// FreeSlotsJobName — имя задачи в метриках раннера.
const FreeSlotsJobName = "free_slots_gauge"

// FreeSlotLister — то, что нужно задаче от scheduling.Service.
type FreeSlotLister interface {
	ListFreeSlots(ctx context.Context, asOf time.Time) ([]models.Slot, error)
}

// FreeSlotsGauge — обновляет gauge slotbook_free_slots.
func FreeSlotsGauge(svc FreeSlotLister, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		ctx, cancel := ctxutil.WithDBTimeout(ctx)
		defer cancel()
		free, err := svc.ListFreeSlots(ctx, now())
		if err != nil {
			return err
		}
		metrics.FreeSlots.Set(float64(len(free)))
		return nil
	}
}
