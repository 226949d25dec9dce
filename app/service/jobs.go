package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
)

const pendingTimeoutMessage = "no response recorded before the pending timeout"

// RunExpirePendingBatch marks transaction logs stuck in pending as timed out.
func (s *TerminalService) RunExpirePendingBatch(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-s.jobsCfg.PendingTimeout)
	items, err := s.logRepo.ListStalePending(ctx, cutoff, s.batchSize())
	if err != nil {
		return 0, err
	}

	expired := 0
	var firstErr error
	for _, log := range items {
		if log == nil || log.Status != entity.TransactionStatusPending {
			continue
		}

		message := pendingTimeoutMessage
		duration := now.Sub(log.RequestTimestamp).Seconds()
		log.Status = entity.TransactionStatusTimeout
		log.ErrorMessage = &message
		log.ResponseTimestamp = &now
		log.DurationSeconds = &duration
		log.UpdatedAt = now

		updated, err := s.logRepo.MarkTimeout(ctx, log)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if updated {
			expired++
		}
	}

	if expired > 0 {
		s.logger.WithField("expired", expired).Info("Expired stale pending transaction logs")
	}
	return expired, firstErr
}

func (s *TerminalService) batchSize() int32 {
	if s.jobsCfg.BatchSize <= 0 {
		return defaultBatchSize
	}
	return s.jobsCfg.BatchSize
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
