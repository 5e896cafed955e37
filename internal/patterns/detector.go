// Package patterns runs windowed statistical analysis over an account's
// transaction history. Patterns are advisory: they inform investigators but
// never flag transactions or open cases on their own.
package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"compliance-monitor/internal/compliance/metrics"
	"compliance-monitor/internal/domain"
	"compliance-monitor/internal/events"
	"compliance-monitor/internal/storage"
	"compliance-monitor/pkg/platform/tx"
	"compliance-monitor/pkg/requestcontext"
)

const (
	// analysisWindow is how far back detection looks.
	analysisWindow = 30 * 24 * time.Hour
	// minSampleSize is the minimum history size worth analyzing; smaller
	// accounts produce too much noise.
	minSampleSize = 5
	// analysisFetchLimit bounds the history read per run.
	analysisFetchLimit = 5000

	// velocityBurstThreshold is the per-hour transaction count above which a
	// burst is reported.
	velocityBurstThreshold = 5

	// structuringMinCount is how many just-under-threshold amounts mark
	// potential structuring.
	structuringMinCount = 3

	// temporalMinCount is how many night-time transactions mark an unusual
	// timing pattern.
	temporalMinCount = 3
)

// Structuring band: amounts at or above the floor but below the reporting
// threshold, the classic shape of threshold avoidance.
var (
	structuringFloor   = decimal.NewFromInt(9000)
	structuringCeiling = decimal.NewFromInt(10000)
)

// Detector runs all sub-detectors over one account's recent history and
// persists whatever they find as a single batch.
type Detector struct {
	transactions storage.TransactionStore
	patterns     storage.PatternStore
	runner       tx.Runner
	publisher    events.Publisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

func NewDetector(
	transactions storage.TransactionStore,
	patterns storage.PatternStore,
	runner tx.Runner,
	publisher events.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Detector {
	return &Detector{
		transactions: transactions,
		patterns:     patterns,
		runner:       runner,
		publisher:    publisher,
		logger:       logger,
		metrics:      m,
	}
}

// Detect analyzes the account's last 30 days. Histories below the minimum
// sample size return empty without running detectors. Sub-detectors run
// concurrently; the result order is fixed (velocity, amount, temporal)
// regardless of completion order. Detected patterns are persisted together.
func (d *Detector) Detect(ctx context.Context, accountID string) ([]*domain.TransactionPattern, error) {
	now := requestcontext.Now(ctx)
	from := now.Add(-analysisWindow)

	history, err := d.transactions.FindByAccount(ctx, accountID,
		storage.TimeRange{From: &from, To: &now}, analysisFetchLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("load history for pattern detection: %w", err)
	}
	if len(history) < minSampleSize {
		return []*domain.TransactionPattern{}, nil
	}

	// Fixed result slots keep output order deterministic under concurrency.
	slots := make([]*domain.TransactionPattern, 3)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { slots[0] = detectVelocityBurst(gctx, accountID, history); return nil })
	g.Go(func() error { slots[1] = detectStructuring(gctx, accountID, history); return nil })
	g.Go(func() error { slots[2] = detectNightActivity(gctx, accountID, history); return nil })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detected := make([]*domain.TransactionPattern, 0, len(slots))
	for _, p := range slots {
		if p == nil {
			continue
		}
		p.ID = uuid.New()
		p.AccountID = accountID
		p.IsActive = true
		detected = append(detected, p)
		d.metrics.RecordPattern(string(p.Type))
	}

	if len(detected) == 0 {
		return detected, nil
	}

	err = d.runner.RunInTx(ctx, func(ctx context.Context) error {
		return d.patterns.InsertBatch(ctx, detected)
	})
	if err != nil {
		return nil, fmt.Errorf("persist detected patterns: %w", err)
	}

	d.logger.InfoContext(ctx, "suspicious patterns detected",
		"account_id", accountID, "pattern_count", len(detected))

	event := events.Event{
		Type:         events.EventPatternsDetected,
		Timestamp:    now,
		AccountID:    accountID,
		PatternCount: len(detected),
		RequestID:    requestcontext.RequestID(ctx),
	}
	if err := d.publisher.Emit(ctx, event); err != nil {
		d.logger.WarnContext(ctx, "pattern event emission failed",
			"account_id", accountID, "error", err)
	}

	return detected, nil
}

// detectVelocityBurst buckets the history by clock hour and reports the
// busiest bucket when it exceeds the burst threshold.
func detectVelocityBurst(_ context.Context, accountID string, history []*domain.Transaction) *domain.TransactionPattern {
	buckets := make(map[time.Time][]*domain.Transaction)
	for _, t := range history {
		hour := t.Timestamp.Truncate(time.Hour)
		buckets[hour] = append(buckets[hour], t)
	}

	var (
		peakHour time.Time
		peak     []*domain.Transaction
	)
	for hour, txns := range buckets {
		if len(txns) > len(peak) || (len(txns) == len(peak) && hour.Before(peakHour)) {
			peakHour, peak = hour, txns
		}
	}
	if len(peak) <= velocityBurstThreshold {
		return nil
	}

	return buildPattern(domain.PatternVelocity, peak, 1,
		fmt.Sprintf("account %s executed %d transactions within the hour starting %s",
			accountID, len(peak), peakHour.UTC().Format(time.RFC3339)),
		minFloat(float64(len(peak))/10.0, 1.0))
}

// detectStructuring looks for repeated amounts just below the 10,000
// reporting threshold.
func detectStructuring(_ context.Context, accountID string, history []*domain.Transaction) *domain.TransactionPattern {
	var hits []*domain.Transaction
	for _, t := range history {
		if t.Amount.GreaterThanOrEqual(structuringFloor) && t.Amount.LessThan(structuringCeiling) {
			hits = append(hits, t)
		}
	}
	if len(hits) < structuringMinCount {
		return nil
	}

	return buildPattern(domain.PatternAmount, hits, 24,
		fmt.Sprintf("account %s made %d transactions between %s and %s, just below the reporting threshold",
			accountID, len(hits), structuringFloor, structuringCeiling),
		minFloat(float64(len(hits))/5.0, 1.0))
}

// detectNightActivity counts transactions in the 22:00-06:59 window.
func detectNightActivity(_ context.Context, accountID string, history []*domain.Transaction) *domain.TransactionPattern {
	var hits []*domain.Transaction
	for _, t := range history {
		hour := t.Timestamp.Hour()
		if hour >= 22 || hour <= 6 {
			hits = append(hits, t)
		}
	}
	if len(hits) < temporalMinCount {
		return nil
	}

	return buildPattern(domain.PatternTemporal, hits, 24,
		fmt.Sprintf("account %s shows %d transactions during unusual hours (22:00-07:00)",
			accountID, len(hits)),
		minFloat(float64(len(hits))/10.0, 1.0))
}

// buildPattern assembles the shared pattern fields from the contributing
// transactions. First/last detection times come from the evidence itself.
func buildPattern(pt domain.PatternType, evidence []*domain.Transaction, windowHours int, description string, confidence float64) *domain.TransactionPattern {
	ids := make([]uuid.UUID, 0, len(evidence))
	first, last := evidence[0].Timestamp, evidence[0].Timestamp
	for _, t := range evidence {
		ids = append(ids, t.ID)
		if t.Timestamp.Before(first) {
			first = t.Timestamp
		}
		if t.Timestamp.After(last) {
			last = t.Timestamp
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	return &domain.TransactionPattern{
		Type:            pt,
		Description:     description,
		ConfidenceScore: confidence,
		FrequencyCount:  len(evidence),
		TimeWindowHours: windowHours,
		FirstDetectedAt: first,
		LastDetectedAt:  last,
		TransactionIDs:  ids,
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
