package main

import (
	"context"
	"fmt"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/delivery"
	"github.com/robfig/cron/v3"
)

// runScheduled generates once right away and then on every tick of expr
// until ctx is cancelled. Ticks that fire during a run are skipped.
func runScheduled(ctx context.Context, expr string, p *delivery.Pipeline) error {
	logger := cron.PrintfLogger(p.Log)
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))

	generate := func() {
		summary, err := p.Generate(ctx)
		if err != nil {
			p.Log.WithError(err).Error("Scheduled generation failed")
			return
		}
		p.Log.WithField("completed", summary.Completed).WithField("attempted", summary.Attempted).Info("Scheduled generation finished")
	}

	if _, err := c.AddFunc(expr, generate); err != nil {
		return fmt.Errorf("error scheduling cron job: %w", err)
	}
	p.Log.WithField("schedule", expr).Info("Generation scheduled")
	generate()
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
