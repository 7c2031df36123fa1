package merge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rpattn/placement-timeline/internal/domain"
	"github.com/rpattn/placement-timeline/internal/export"
	"github.com/rpattn/placement-timeline/internal/ingestion"
	"github.com/rpattn/placement-timeline/internal/metrics"
	"github.com/rpattn/placement-timeline/internal/repository"

	"github.com/sirupsen/logrus"
)

// Service runs the fresh and incremental merges against files, and optionally mirrors each
// result into a company store and a run log.
type Service struct {
	ingest     *ingestion.Service
	logger     *logrus.Logger
	sortMode   domain.SortMode
	freshJSON  export.JSONOptions
	updateJSON export.JSONOptions
	runs       repository.MergeRunRepository
	store      repository.CompanyRepository
	metrics    *metrics.Recorder
}

type Option func(*Service)

func WithSortMode(mode domain.SortMode) Option {
	return func(s *Service) {
		s.sortMode = mode
	}
}

// WithJSONOptions sets the output encoding of the fresh and the incremental run.
func WithJSONOptions(fresh, update export.JSONOptions) Option {
	return func(s *Service) {
		s.freshJSON = fresh
		s.updateJSON = update
	}
}

func WithRunRepository(runs repository.MergeRunRepository) Option {
	return func(s *Service) {
		s.runs = runs
	}
}

func WithCompanyStore(store repository.CompanyRepository) Option {
	return func(s *Service) {
		s.store = store
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = recorder
	}
}

func NewService(ingest *ingestion.Service, logger *logrus.Logger, opts ...Option) *Service {
	service := &Service{
		ingest:     ingest,
		logger:     logger,
		sortMode:   domain.SortModeLexical,
		freshJSON:  export.DefaultJSONOptions(),
		updateJSON: export.JSONOptions{Indent: 4, EscapeASCII: true},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// ListRuns pages through the run log, newest first.
func (s *Service) ListRuns(ctx context.Context, limit, offset int) ([]domain.MergeRun, error) {
	if s.runs == nil {
		return nil, ErrNoStore
	}
	return s.runs.List(ctx, limit, offset)
}

// FreshRequest names the inputs and output of a fresh merge.
type FreshRequest struct {
	CompaniesPath string
	TimelinePath  string
	OutputPath    string
}

// IncrementalRequest names the inputs and output of an incremental update.
type IncrementalRequest struct {
	CompaniesPath string
	EventsPath    string
	OutputPath    string
}

// RunFresh merges the full timeline into the company list and writes the result.
// A missing input is logged and reported as ErrMissingInput without writing anything.
func (s *Service) RunFresh(ctx context.Context, req FreshRequest) (domain.MergeRun, error) {
	run := domain.NewMergeRun(domain.MergeKindFresh, req.TimelinePath, req.OutputPath)
	start := time.Now()

	for _, path := range []string{req.CompaniesPath, req.TimelinePath} {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			s.logger.Errorf("Error: %s not found", path)
			err = fmt.Errorf("%s: %w", path, ErrMissingInput)
			return s.finish(ctx, run.Fail(domain.MergeSummary{}, err), start), err
		}
	}

	companies, err := s.ingest.LoadCompanies(req.CompaniesPath)
	if err != nil {
		return s.finish(ctx, run.Fail(domain.MergeSummary{}, err), start), err
	}
	events, err := s.ingest.LoadEvents(req.TimelinePath)
	if err != nil {
		return s.finish(ctx, run.Fail(domain.MergeSummary{}, err), start), err
	}
	s.logger.Infof("Processing %d roles and %d events...", len(companies), len(events))

	summary, err := Fresh(companies, events)
	if err != nil {
		return s.finish(ctx, run.Fail(summary, err), start), err
	}

	if err := s.save(ctx, run, companies, req.OutputPath, s.freshJSON); err != nil {
		return s.finish(ctx, run.Fail(summary, err), start), err
	}

	s.logger.Infof("✓ Merged %d timeline events", summary.MatchedEvents)
	s.logger.Infof("✓ Saved to: %s", req.OutputPath)
	return s.finish(ctx, run.Complete(summary), start), nil
}

// RunIncremental upserts an event batch into the merged dataset and writes the result.
// Any failure is logged and leaves the output file untouched.
func (s *Service) RunIncremental(ctx context.Context, req IncrementalRequest) (domain.MergeRun, error) {
	run := domain.NewMergeRun(domain.MergeKindIncremental, req.EventsPath, req.OutputPath)
	start := time.Now()

	fail := func(summary domain.MergeSummary, err error) (domain.MergeRun, error) {
		s.logger.Errorf("Error: %v", err)
		return s.finish(ctx, run.Fail(summary, err), start), err
	}

	companies, err := s.ingest.LoadCompanies(req.CompaniesPath)
	if err != nil {
		return fail(domain.MergeSummary{}, err)
	}
	s.logger.Infof("Loaded %d company profiles.", len(companies))

	events, err := s.ingest.LoadEvents(req.EventsPath)
	if err != nil {
		return fail(domain.MergeSummary{}, err)
	}

	summary, err := s.applyIncremental(ctx, run, companies, events, req.OutputPath)
	if err != nil {
		return fail(summary, err)
	}

	s.logger.Infof("Update complete. Processed %d new events.", len(events))
	s.logger.Infof("Saved to %s", req.OutputPath)
	return s.finish(ctx, run.Complete(summary), start), nil
}

// applyIncremental merges events into companies in place and persists the result.
func (s *Service) applyIncremental(ctx context.Context, run domain.MergeRun, companies []domain.Company, events []domain.RawEvent, outputPath string) (domain.MergeSummary, error) {
	summary, err := Incremental(companies, events, s.sortMode)
	if err != nil {
		return summary, err
	}
	s.logger.WithFields(logrus.Fields{
		"matched": summary.MatchedEvents,
		"added":   summary.AddedEvents,
		"updated": summary.UpdatedEvents,
		"skipped": summary.SkippedEvents,
	}).Debug("Applied event batch")

	if err := s.save(ctx, run, companies, outputPath, s.updateJSON); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Service) save(ctx context.Context, run domain.MergeRun, companies []domain.Company, outputPath string, opts export.JSONOptions) error {
	if err := export.WriteCompaniesFile(outputPath, companies, opts); err != nil {
		return err
	}
	if s.store == nil {
		return nil
	}
	if err := s.store.ReplaceAll(ctx, run.ID, companies); err != nil {
		return fmt.Errorf("failed to store merged dataset: %w", err)
	}
	return nil
}

// finish records metrics and the run log. Run log failures are logged, not returned.
func (s *Service) finish(ctx context.Context, run domain.MergeRun, start time.Time) domain.MergeRun {
	s.metrics.ObserveRun(run, time.Since(start))

	entry := s.logger.WithFields(logrus.Fields{
		"run_id":  run.ID.String(),
		"kind":    run.Kind,
		"status":  run.Status,
		"matched": run.Summary.MatchedEvents,
		"skipped": run.Summary.SkippedEvents,
	})
	entry.Debug("Merge run finished")

	if s.runs != nil {
		if err := s.runs.Record(ctx, run); err != nil {
			entry.WithError(err).Warn("Failed to record merge run")
		}
	}
	return run
}
