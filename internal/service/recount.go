package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const recountTimeout = 2 * time.Minute

// StartRecountJob runs CampService.Recount on a cron schedule, repairing any
// participant count drift left by partial failures. The repair is eventual: a
// recount that reads the registrations between a registration write and its
// ±1 counter update stores a value that the update then skews by one, and the
// next run corrects it. The returned cron must be stopped on shutdown.
func StartRecountJob(schedule string, camps *CampService) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), recountTimeout)
		defer cancel()
		if _, err := camps.Recount(ctx); err != nil {
			log.Printf("[recount] %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule recount %q: %w", schedule, err)
	}
	log.Printf("[recount] started schedule=%q", schedule)
	c.Start()
	return c, nil
}
