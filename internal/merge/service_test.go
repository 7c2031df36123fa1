package merge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rpattn/placement-timeline/internal/domain"
	"github.com/rpattn/placement-timeline/internal/ingestion"
	"github.com/rpattn/placement-timeline/internal/logging"
	"github.com/rpattn/placement-timeline/internal/metrics"

	"github.com/google/uuid"
)

type stubRunRepository struct {
	runs []domain.MergeRun
	err  error
}

func (s *stubRunRepository) Record(ctx context.Context, run domain.MergeRun) error {
	s.runs = append(s.runs, run)
	return s.err
}

func (s *stubRunRepository) List(ctx context.Context, limit int, offset int) ([]domain.MergeRun, error) {
	return s.runs, nil
}

type stubCompanyStore struct {
	runID     uuid.UUID
	companies []domain.Company
	err       error
}

func (s *stubCompanyStore) ReplaceAll(ctx context.Context, runID uuid.UUID, companies []domain.Company) error {
	if s.err != nil {
		return s.err
	}
	s.runID = runID
	s.companies = domain.CloneCompanies(companies)
	return nil
}

func (s *stubCompanyStore) List(ctx context.Context) ([]domain.Company, error) {
	return s.companies, nil
}

const companiesFixture = `[
    {"company_name": "Spotnana", "profile": "SDE", "location": "Zürich"},
    {"company_name": "Bayer", "profile": "Data Scientist"},
    {"company_name": "Quiet Corp", "profile": "Analyst"}
]`

const timelineFixture = `[
    {"ID": 12255, "CreatedAt": "2026-01-08T11:34:15.838182Z", "title": "Test - Bayer", "description": "<p>L7</p>", "tags": "Test"},
    {"ID": 12303, "CreatedAt": "2026-01-17T03:10:15.118214Z", "title": "Reminder: PPT and Interview  - Spotnana", "tags": "PPT"},
    {"ID": 12000, "CreatedAt": "2026-01-01T00:00:00Z", "title": "General notice"}
]`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestService(opts ...Option) *Service {
	logger := logging.Discard()
	return NewService(ingestion.NewService(logger), logger, opts...)
}

func TestRunFreshWritesMergedFile(t *testing.T) {
	dir := t.TempDir()
	runs := &stubRunRepository{}
	store := &stubCompanyStore{}
	service := newTestService(WithRunRepository(runs), WithCompanyStore(store), WithMetrics(metrics.NewRecorder()))

	req := FreshRequest{
		CompaniesPath: writeFixture(t, dir, "linked_company_details.json", companiesFixture),
		TimelinePath:  writeFixture(t, dir, "linked_timeline.json", timelineFixture),
		OutputPath:    filepath.Join(dir, "merged_company_data.json"),
	}
	run, err := service.RunFresh(context.Background(), req)
	if err != nil {
		t.Fatalf("fresh run returned error: %v", err)
	}
	if run.Status != domain.MergeRunStatusCompleted || run.Summary.MatchedEvents != 2 || run.Summary.SkippedEvents != 1 {
		t.Fatalf("unexpected run: %+v", run)
	}

	out, err := os.ReadFile(req.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("[\n    {\n        \"company_name\": \"Spotnana\"")) {
		t.Fatalf("expected four-space indented output, got:\n%s", out)
	}
	if !bytes.Contains(out, []byte("Zürich")) || !bytes.Contains(out, []byte("<p>L7</p>")) {
		t.Fatalf("expected UTF-8 and HTML to be written verbatim")
	}
	if !bytes.Contains(out, []byte(`"tags": "Test"`)) {
		t.Fatalf("expected fresh records to carry tags")
	}

	if len(runs.runs) != 1 || runs.runs[0].ID != run.ID {
		t.Fatalf("expected the run to be recorded, got %+v", runs.runs)
	}
	if store.runID != run.ID || len(store.companies) != 3 {
		t.Fatalf("expected dataset to be stored under the run id")
	}
}

func TestRunFreshMissingInput(t *testing.T) {
	dir := t.TempDir()
	runs := &stubRunRepository{}
	service := newTestService(WithRunRepository(runs))

	req := FreshRequest{
		CompaniesPath: writeFixture(t, dir, "linked_company_details.json", companiesFixture),
		TimelinePath:  filepath.Join(dir, "linked_timeline.json"),
		OutputPath:    filepath.Join(dir, "merged_company_data.json"),
	}
	_, err := service.RunFresh(context.Background(), req)
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if _, statErr := os.Stat(req.OutputPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("output must not be written when an input is missing")
	}
	if len(runs.runs) != 1 || runs.runs[0].Status != domain.MergeRunStatusFailed {
		t.Fatalf("expected a failed run record, got %+v", runs.runs)
	}
}

func TestRunFreshMalformedInput(t *testing.T) {
	dir := t.TempDir()
	service := newTestService()

	req := FreshRequest{
		CompaniesPath: writeFixture(t, dir, "linked_company_details.json", `[{"company_name": "Bayer",`),
		TimelinePath:  writeFixture(t, dir, "linked_timeline.json", timelineFixture),
		OutputPath:    filepath.Join(dir, "merged_company_data.json"),
	}
	_, err := service.RunFresh(context.Background(), req)
	if err == nil || errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestRunIncrementalAppliesBatch(t *testing.T) {
	dir := t.TempDir()
	runs := &stubRunRepository{}
	service := newTestService(WithRunRepository(runs))

	req := IncrementalRequest{
		CompaniesPath: writeFixture(t, dir, "merged_company_data.json", companiesFixture),
		EventsPath:    filepath.Join("..", "..", "data", "new_events.json"),
		OutputPath:    filepath.Join(dir, "updated_merged_company_data.json"),
	}
	run, err := service.RunIncremental(context.Background(), req)
	if err != nil {
		t.Fatalf("incremental run returned error: %v", err)
	}
	if run.Summary.Events != 26 || run.Summary.AddedEvents != 11 {
		t.Fatalf("unexpected summary: %+v", run.Summary)
	}

	out, err := os.ReadFile(req.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Contains(out, []byte(`Z\u00fcrich`)) {
		t.Fatalf("expected non-ASCII to be escaped in update output")
	}
	if bytes.Contains(out, []byte(`"tags"`)) {
		t.Fatalf("incremental records must not carry tags")
	}
	if len(runs.runs) != 1 || runs.runs[0].Kind != domain.MergeKindIncremental {
		t.Fatalf("expected an incremental run record, got %+v", runs.runs)
	}
}

func TestRunIncrementalFailureKeepsPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	service := newTestService()

	output := writeFixture(t, dir, "updated_merged_company_data.json", "previous")
	req := IncrementalRequest{
		CompaniesPath: writeFixture(t, dir, "merged_company_data.json", companiesFixture),
		EventsPath:    writeFixture(t, dir, "new_events.json", `{"events": [`),
		OutputPath:    output,
	}
	run, err := service.RunIncremental(context.Background(), req)
	if err == nil {
		t.Fatalf("expected error for malformed batch")
	}
	if run.Status != domain.MergeRunStatusFailed || run.ErrorMessage == nil {
		t.Fatalf("expected failed run, got %+v", run)
	}

	data, readErr := os.ReadFile(output)
	if readErr != nil || string(data) != "previous" {
		t.Fatalf("previous output must be left untouched, got %q (%v)", data, readErr)
	}
}

func TestDatasetApplyEvents(t *testing.T) {
	dir := t.TempDir()
	store := &stubCompanyStore{}
	service := newTestService(WithCompanyStore(store))

	dataset, err := service.LoadDataset(writeFixture(t, dir, "merged_company_data.json", companiesFixture), filepath.Join(dir, "updated.json"))
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}

	events := []domain.RawEvent{{ID: 12258, CreatedAt: "2026-01-08T19:21:00Z", Title: "Test Instructions - Bayer"}}
	summary, err := dataset.ApplyEvents(context.Background(), "upload.json", events)
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}
	if summary.AddedEvents != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	profiles := dataset.Profiles(" bayer ")
	if len(profiles) != 1 || len(profiles[0].Timeline) != 1 || profiles[0].Timeline[0].ID != 12258 {
		t.Fatalf("expected Bayer to hold the applied event, got %+v", profiles)
	}
	if _, err := os.Stat(filepath.Join(dir, "updated.json")); err != nil {
		t.Fatalf("expected output file: %v", err)
	}

	snapshot := dataset.Snapshot()
	snapshot[1].Timeline[0].Title = "mutated"
	if dataset.Profiles("Bayer")[0].Timeline[0].Title == "mutated" {
		t.Fatalf("snapshot must not alias the dataset")
	}
}

func TestDatasetApplyEventsFailureKeepsState(t *testing.T) {
	dir := t.TempDir()
	store := &stubCompanyStore{err: errors.New("database unavailable")}
	service := newTestService(WithCompanyStore(store))

	dataset, err := service.LoadDataset(writeFixture(t, dir, "merged_company_data.json", companiesFixture), filepath.Join(dir, "updated.json"))
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}

	events := []domain.RawEvent{{ID: 1, CreatedAt: "2026-01-08T19:21:00Z", Title: "Test - Bayer"}}
	if _, err := dataset.ApplyEvents(context.Background(), "upload.json", events); err == nil {
		t.Fatalf("expected store failure to be returned")
	}
	if profiles := dataset.Profiles("Bayer"); profiles[0].HasTimeline() {
		t.Fatalf("failed apply must not change the served dataset")
	}
}

func TestLoadStoredDataset(t *testing.T) {
	var companies []domain.Company
	if err := json.Unmarshal([]byte(companiesFixture), &companies); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	store := &stubCompanyStore{companies: companies}
	service := newTestService(WithCompanyStore(store))

	dataset, err := service.LoadStoredDataset(context.Background(), filepath.Join(t.TempDir(), "updated.json"))
	if err != nil {
		t.Fatalf("load stored dataset: %v", err)
	}
	if got := dataset.Snapshot(); len(got) != 3 || got[0].Name != "Spotnana" {
		t.Fatalf("unexpected stored dataset %+v", got)
	}

	if _, err := newTestService().LoadStoredDataset(context.Background(), "updated.json"); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	runs := &stubRunRepository{runs: []domain.MergeRun{domain.NewMergeRun(domain.MergeKindFresh, "a", "b")}}
	got, err := newTestService(WithRunRepository(runs)).ListRuns(context.Background(), 10, 0)
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected runs %+v (%v)", got, err)
	}

	if _, err := newTestService().ListRuns(context.Background(), 10, 0); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}
