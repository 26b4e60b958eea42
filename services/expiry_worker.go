package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiryWorker periodically sweeps for orders whose reservation window
// lapsed without payment and cancels them.
type ExpiryWorker struct {
	orders   *OrderService
	interval time.Duration
	logger   *zap.Logger
}

func NewExpiryWorker(orders *OrderService, interval time.Duration, logger *zap.Logger) *ExpiryWorker {
	return &ExpiryWorker{orders: orders, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled. Intended to be started in its own
// goroutine alongside the HTTP server.
func (w *ExpiryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reservation expiry worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reservation expiry worker stopped")
			return
		case <-ticker.C:
			expired, err := w.orders.ExpireOverdueReservations(ctx)
			if err != nil {
				w.logger.Error("expiry sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				w.logger.Info("expiry sweep completed", zap.Int("expired", expired))
			}
		}
	}
}
