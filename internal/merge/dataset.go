package merge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rpattn/placement-timeline/internal/domain"

	"github.com/sirupsen/logrus"
)

// Dataset is the merged company list held in memory by serve mode. Readers get clones;
// ApplyEvents works on a clone and swaps it in only after the output was written.
type Dataset struct {
	service    *Service
	outputPath string

	mu        sync.RWMutex
	companies []domain.Company
	loadedAt  time.Time
}

// LoadDataset reads the merged dataset at path. Applied batches are written to outputPath.
func (s *Service) LoadDataset(path, outputPath string) (*Dataset, error) {
	companies, err := s.ingest.LoadCompanies(path)
	if err != nil {
		return nil, err
	}
	s.logger.Infof("Loaded %d company profiles.", len(companies))
	return NewDataset(s, companies, outputPath), nil
}

// LoadStoredDataset reads the dataset last written to the company store. Applied batches
// are written to outputPath.
func (s *Service) LoadStoredDataset(ctx context.Context, outputPath string) (*Dataset, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	companies, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored dataset: %w", err)
	}
	s.logger.Infof("Loaded %d company profiles from the store.", len(companies))
	return NewDataset(s, companies, outputPath), nil
}

// NewDataset wraps an already loaded company list.
func NewDataset(service *Service, companies []domain.Company, outputPath string) *Dataset {
	return &Dataset{
		service:    service,
		outputPath: outputPath,
		companies:  companies,
		loadedAt:   time.Now().UTC(),
	}
}

// Snapshot returns a deep copy of the current dataset.
func (d *Dataset) Snapshot() []domain.Company {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return domain.CloneCompanies(d.companies)
}

// Profiles returns every profile whose trimmed company name equals name, ignoring case.
func (d *Dataset) Profiles(name string) []domain.Company {
	name = strings.TrimSpace(name)
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []domain.Company
	for _, c := range d.companies {
		if strings.EqualFold(c.TrimmedName(), name) {
			out = append(out, c.Clone())
		}
	}
	return out
}

// UpdatedAt reports when the dataset was loaded or last changed.
func (d *Dataset) UpdatedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadedAt
}

// ApplyEvents upserts a batch into the dataset and writes the result to the output file.
// On failure the in-memory dataset is left unchanged.
func (d *Dataset) ApplyEvents(ctx context.Context, source string, events []domain.RawEvent) (domain.MergeSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.service
	run := domain.NewMergeRun(domain.MergeKindIncremental, source, d.outputPath)
	start := time.Now()

	working := domain.CloneCompanies(d.companies)
	summary, err := s.applyIncremental(ctx, run, working, events, d.outputPath)
	if err != nil {
		s.logger.WithError(err).WithField("source", source).Error("Failed to apply event batch")
		s.finish(ctx, run.Fail(summary, err), start)
		return summary, err
	}

	d.companies = working
	d.loadedAt = time.Now().UTC()
	s.finish(ctx, run.Complete(summary), start)
	s.logger.WithFields(logrus.Fields{
		"source":  source,
		"events":  len(events),
		"added":   summary.AddedEvents,
		"updated": summary.UpdatedEvents,
	}).Info("Applied event batch")
	return summary, nil
}
