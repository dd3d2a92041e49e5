package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	domrepo "ForecastArena/internal/domain/repository"
	domservice "ForecastArena/internal/domain/service"
	"ForecastArena/internal/sampler"
	applogger "ForecastArena/pkg/logger"
)

// BenchmarkService orchestrates full runs: build the candidate pool,
// sample the schedule, drive the round loop, publish the result. One
// run at a time; a second trigger while one is in flight is refused.
type BenchmarkService struct {
	builder    *ScheduleBuilder
	runner     *BenchmarkRunner
	report     *ReportUseCase
	sources    []domservice.PredictionSource
	samplerCfg sampler.Config
	l          *applogger.Logger

	mu      sync.Mutex
	running bool
}

func NewBenchmarkService(
	builder *ScheduleBuilder,
	runner *BenchmarkRunner,
	report *ReportUseCase,
	sources []domservice.PredictionSource,
	samplerCfg sampler.Config,
	l *applogger.Logger,
) *BenchmarkService {
	return &BenchmarkService{
		builder:    builder,
		runner:     runner,
		report:     report,
		sources:    sources,
		samplerCfg: samplerCfg,
		l:          l,
	}
}

// Running reports whether a run is in flight.
func (s *BenchmarkService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Trigger starts a run in the background and returns its id. The run
// samples the schedule from the scheduling horizon's history, then
// scores every configured horizon over those instants.
func (s *BenchmarkService) Trigger(ctx context.Context, symbol string, rounds int, seed uint32) (string, error) {
	if symbol == "" {
		return "", fmt.Errorf("symbol required")
	}
	if len(s.sources) == 0 {
		return "", fmt.Errorf("no prediction sources configured")
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return "", fmt.Errorf("a benchmark is already running")
	}
	s.running = true
	s.mu.Unlock()

	id := fmt.Sprintf("bench-%s-%d", time.Now().UTC().Format("20060102T150405"), seed)
	go s.run(id, symbol, rounds, seed)
	return id, nil
}

func (s *BenchmarkService) run(id, symbol string, rounds int, seed uint32) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	// detached from the trigger request: an HTTP timeout must not
	// cancel a run already in progress
	ctx := context.Background()
	start := time.Now()

	side := domrepo.SideLow
	schedH := domrepo.DefaultHorizon()
	pool, err := s.builder.BuildCandidates(ctx, symbol, side, schedH, 8*rounds)
	if err != nil {
		s.logErr(id, "candidate pool failed", err)
		return
	}

	cfg := s.samplerCfg
	cfg.Target = rounds
	picked := sampler.New(cfg, sampler.NewMulberry32(seed)).Combined(pool, schedH)
	if len(picked) == 0 {
		s.logErr(id, "sampler produced no instants", fmt.Errorf("empty selection from %d candidates", len(pool)))
		return
	}
	snaps := make([]time.Time, len(picked))
	for i, c := range picked {
		snaps[i] = c.SnapTime
	}

	res, err := s.runner.Run(ctx, BenchmarkParams{
		BenchmarkID: id,
		Symbol:      symbol,
		Side:        side,
		SnapTimes:   snaps,
	}, s.sources)
	if err != nil {
		s.logErr(id, "benchmark run failed", err)
		return
	}
	s.report.SetLatest(res)
	if s.l != nil {
		s.l.Info("benchmark finished",
			applogger.String("benchmark_id", id),
			applogger.String("symbol", symbol),
			applogger.Int("rounds", len(snaps)),
			applogger.Duration("took", time.Since(start)),
		)
	}
}

func (s *BenchmarkService) logErr(id, msg string, err error) {
	if s.l != nil {
		s.l.Error(msg, applogger.String("benchmark_id", id), applogger.Error(err))
	}
}
