package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/buildmart/buildmart/internal/audit"
	jobmetrics "github.com/buildmart/buildmart/internal/jobs"
)

// ErrChainBroken is returned when verification finds inconsistencies.
var ErrChainBroken = errors.New("audit chain: breaks detected")

const maxLoggedBreaks = 20

// AuditChainJob recomputes the audit hash chain from the first event.
type AuditChainJob struct {
	Reader  audit.ChainReader
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAuditChainJob initialises the verification handler.
func NewAuditChainJob(reader audit.ChainReader, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditChainJob {
	return &AuditChainJob{
		Reader:  reader,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one verification run. A broken chain is not retried.
func (j *AuditChainJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reader == nil {
		return errors.New("audit chain: handler not configured")
	}
	var payload AuditChainPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	start := j.clock()
	tracker := j.Metrics.Track(TaskAuditChainVerify)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("batch_size", payload.BatchSize))
	logger.Info("starting audit chain verification")

	report, err := audit.NewVerifier(j.Reader, payload.BatchSize).Verify(ctx)
	if err != nil {
		logger.Error("verification failed", slog.Any("error", err))
		return err
	}

	for i, b := range report.Breaks {
		if i == maxLoggedBreaks {
			logger.Warn("further audit chain breaks omitted", slog.Int("remaining", len(report.Breaks)-i))
			break
		}
		logger.Warn("audit chain break",
			slog.Int64("sequence", b.Sequence),
			slog.String("event_id", b.EventID),
			slog.String("reason", b.Reason),
		)
	}
	j.Metrics.AddChainBreaks(len(report.Breaks))

	logger.Info("completed audit chain verification",
		slog.Int64("checked", report.Checked),
		slog.Int64("head", report.Head),
		slog.Int("breaks", len(report.Breaks)),
		slog.Duration("duration", time.Since(start)),
	)
	if !report.Intact() {
		return fmt.Errorf("%w: %d at head %d: %w", ErrChainBroken, len(report.Breaks), report.Head, asynq.SkipRetry)
	}
	return nil
}

func (j *AuditChainJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
