package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rpattn/placement-timeline/internal/domain"
)

// Format names an export target.
type Format string

const (
	FormatJSON   Format = "json"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// ErrUnsupportedFormat is returned for unknown export formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat validates a user supplied format name.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	case FormatSQLite, "sqlite3", "db":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, value)
	}
}

// Extension returns the file extension used for the format.
func (f Format) Extension() string {
	switch f {
	case FormatSQLite:
		return ".sqlite"
	default:
		return "." + string(f)
	}
}

// Service writes merged datasets to files in the configured formats.
type Service struct {
	exportDir string
	json      JSONOptions
}

type Option func(*Service)

func WithExportDirectory(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.exportDir = filepath.Clean(dir)
		}
	}
}

func WithJSONOptions(opts JSONOptions) Option {
	return func(s *Service) {
		s.json = opts
	}
}

func NewService(opts ...Option) *Service {
	service := &Service{
		exportDir: "exports",
		json:      DefaultJSONOptions(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// PathFor returns the default output path for a dataset name and format.
func (s *Service) PathFor(name string, format Format) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		base = "merged_company_data"
	}
	return filepath.Join(s.exportDir, base+format.Extension())
}

// Export writes companies to path in the given format and returns the path written.
// An empty path selects PathFor(name, format).
func (s *Service) Export(ctx context.Context, companies []domain.Company, format Format, name, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = s.PathFor(name, format)
	}

	switch format {
	case FormatJSON:
		return path, WriteCompaniesFile(path, companies, s.json)
	case FormatXLSX:
		var buf bytes.Buffer
		if err := WriteTimelineWorkbook(&buf, companies); err != nil {
			return path, err
		}
		return path, writeFileAtomic(path, buf.Bytes())
	case FormatSQLite:
		return path, WriteSQLite(ctx, path, companies)
	default:
		return path, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
