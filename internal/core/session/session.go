// Package session runs one analysis from event source to output sink.
package session

import (
	"context"
	"fmt"
	"strconv"

	"github.com/zeusync/corestate/internal/core/aggregator"
	"github.com/zeusync/corestate/internal/core/observability/log"
	"github.com/zeusync/corestate/internal/core/sink"
	"github.com/zeusync/corestate/internal/core/trace"
)

// Source delivers branch events and ticks to a handler until it is exhausted.
type Source interface {
	Run(ctx context.Context, h trace.Handler) error
}

type Session struct {
	aggregator *aggregator.Aggregator
	source     Source
	sink       sink.Sink
	logger     log.Log
}

func New(agg *aggregator.Aggregator, source Source, out sink.Sink, logger log.Log) *Session {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Session{
		aggregator: agg,
		source:     source,
		sink:       out,
		logger:     logger.With(log.String("run_id", agg.RunID())),
	}
}

// Run drains the source, finalizes and writes the report. The source has
// returned before Finalize runs, so no tracker is still receiving events.
func (s *Session) Run(ctx context.Context) (aggregator.Report, error) {
	if err := s.source.Run(ctx, s.aggregator); err != nil {
		return aggregator.Report{}, fmt.Errorf("replay: %w", err)
	}

	report := s.aggregator.Finalize()
	m := report.Metrics
	s.logger.Info("report ready",
		log.String("digest", strconv.FormatUint(report.Digest(), 16)),
		log.Int("records", len(report.Records)),
		log.Int("idle_patterns", len(report.Summary)),
		log.Uint64("total_branches", m.TotalBranches),
		log.Uint64("mispredicted", m.Mispredicted),
		log.Uint64("indirect_branches", m.IndirectBranches),
		log.Uint64("ticks", m.Ticks),
		log.Uint64("zero_width_ticks", m.ZeroWidthTicks),
		log.Uint64("records_completed", m.RecordsCompleted),
	)

	if err := s.sink.Write(ctx, report); err != nil {
		return report, fmt.Errorf("write report: %w", err)
	}
	return report, nil
}
