package scheduler

import (
	"context"
	"fmt"

	leadssvc "lending_crm_backend/internal/leads/service"
	lenderssvc "lending_crm_backend/internal/lenders/service"
	"lending_crm_backend/platform/config"
	"lending_crm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	leads   *leadssvc.Service
	lenders *lenderssvc.Service
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, leads *leadssvc.Service, lenders *lenderssvc.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		leads:   leads,
		lenders: lenders,
		log:     log,
	}

	mux.HandleFunc(TaskRecomputeAges, w.handleRecomputeAges)
	mux.HandleFunc(TaskRecomputeLenderStats, w.handleRecomputeLenderStats)

	return w, nil
}

func (w *Worker) handleRecomputeAges(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseRecomputeAgesPayload(task); err != nil {
		return err
	}

	updated, err := w.leads.RecomputeAges(ctx)
	if err != nil {
		return err
	}

	w.log.Info("recomputed lead ages", "updated", updated)
	return nil
}

func (w *Worker) handleRecomputeLenderStats(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRecomputeLenderStatsPayload(task)
	if err != nil {
		return err
	}

	if payload.LenderCode != "" {
		stats, err := w.lenders.RecomputeStatsByCode(ctx, payload.LenderCode)
		if err != nil {
			return err
		}
		w.log.Info("recomputed lender stats",
			"lender", payload.LenderCode,
			"disbursals", stats.Disbursals,
		)
		return nil
	}

	recomputed, err := w.lenders.RecomputeAllStats(ctx)
	if err != nil {
		return err
	}

	w.log.Info("recomputed lender stats for all lenders", "lenders", recomputed)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
