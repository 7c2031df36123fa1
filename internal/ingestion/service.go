package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rpattn/placement-timeline/internal/domain"
	"github.com/rpattn/placement-timeline/pkg/validator"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedFormat is returned when an input file extension is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

	companyNameHeaders = map[string]struct{}{
		"company_name": {},
		"company":      {},
		"name":         {},
	}
)

// Service reads company profile lists and event batches from disk or uploads.
type Service struct {
	logger    *logrus.Logger
	validator *validator.EventValidator
}

// NewService creates a new ingestion service.
func NewService(logger *logrus.Logger) *Service {
	return &Service{
		logger:    logger,
		validator: validator.NewEventValidator(),
	}
}

// LoadCompanies reads a company list file (.json, .csv or .xlsx).
// A missing file yields an error matching fs.ErrNotExist.
func (s *Service) LoadCompanies(path string) ([]domain.Company, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read company list %s: %w", path, err)
	}
	return s.ReadCompanies(path, bytes.NewReader(payload))
}

// ReadCompanies decodes a company list, picking the format from fileName's extension.
func (s *Service) ReadCompanies(fileName string, data io.Reader) ([]domain.Company, error) {
	payload, err := readPayload(data)
	if err != nil {
		return nil, err
	}

	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".json", "":
		var companies []domain.Company
		if err := json.Unmarshal(payload, &companies); err != nil {
			return nil, fmt.Errorf("failed to decode company list: %w", err)
		}
		return companies, nil
	case ".csv":
		table, err := parseCSV(payload)
		if err != nil {
			return nil, err
		}
		return s.companiesFromTable(table)
	case ".xlsx":
		table, err := parseExcel(payload)
		if err != nil {
			return nil, err
		}
		return s.companiesFromTable(table)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// LoadEvents reads an event batch file (.json, .yaml or .yml).
func (s *Service) LoadEvents(path string) ([]domain.RawEvent, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event list %s: %w", path, err)
	}
	return s.ReadEvents(path, bytes.NewReader(payload))
}

// ReadEvents decodes an event batch. Both a bare list and an object with an "events" list are accepted.
func (s *Service) ReadEvents(fileName string, data io.Reader) ([]domain.RawEvent, error) {
	payload, err := readPayload(data)
	if err != nil {
		return nil, err
	}

	var events []domain.RawEvent
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".json", "":
		if err := json.Unmarshal(payload, &events); err != nil {
			var wrapped struct {
				Events []domain.RawEvent `json:"events"`
			}
			if wrapErr := json.Unmarshal(payload, &wrapped); wrapErr != nil || wrapped.Events == nil {
				return nil, fmt.Errorf("failed to decode event list: %w", err)
			}
			events = wrapped.Events
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(payload, &events); err != nil {
			var wrapped struct {
				Events []domain.RawEvent `yaml:"events"`
			}
			if wrapErr := yaml.Unmarshal(payload, &wrapped); wrapErr != nil || wrapped.Events == nil {
				return nil, fmt.Errorf("failed to decode event list: %w", err)
			}
			events = wrapped.Events
		}
		if events == nil {
			events = []domain.RawEvent{}
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	s.reportWarnings(fileName, events)
	return events, nil
}

func (s *Service) reportWarnings(fileName string, events []domain.RawEvent) {
	if s.logger == nil {
		return
	}
	for idx, result := range s.validator.ValidateBatch(events) {
		for _, warning := range result.Warnings {
			s.logger.WithFields(logrus.Fields{
				"file":     fileName,
				"position": idx,
				"event_id": events[idx].ID,
				"field":    warning.Field,
			}).Warn(warning.Message)
		}
	}
}

func (s *Service) companiesFromTable(table tableData) ([]domain.Company, error) {
	nameColumn := -1
	for idx, header := range table.headers {
		if _, ok := companyNameHeaders[header]; ok {
			nameColumn = idx
			break
		}
	}
	if nameColumn < 0 {
		return nil, errors.New("no company name column found")
	}

	keys := make([]string, len(table.headers))
	used := make(map[string]struct{}, len(table.headers))
	for idx := range table.headers {
		key := table.rawHeaders[idx]
		if idx == nameColumn {
			key = "company_name"
		}
		if _, dup := used[key]; dup || key == "" {
			key = table.headers[idx]
		}
		used[key] = struct{}{}
		keys[idx] = key
	}

	companies := make([]domain.Company, 0, len(table.rows))
	for rowIdx, row := range table.rows {
		company := domain.NewCompany(strings.TrimSpace(row[nameColumn]))
		for colIdx, key := range keys {
			if colIdx == nameColumn {
				continue
			}
			if err := company.SetField(key, strings.TrimSpace(row[colIdx])); err != nil {
				rowNumber := table.headerRowIndex + rowIdx + 2
				if s.logger != nil {
					s.logger.WithField("row", rowNumber).Warnf("skipping column %s: %v", key, err)
				}
			}
		}
		companies = append(companies, company)
	}
	return companies, nil
}

func readPayload(data io.Reader) ([]byte, error) {
	if data == nil {
		return nil, errors.New("data reader is required")
	}
	payload, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	payload = bytes.TrimPrefix(payload, byteOrderMark)
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, errors.New("file is empty")
	}
	return payload, nil
}
