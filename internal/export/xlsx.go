package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/rpattn/placement-timeline/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	timelineSheet  = "Timeline"
	companiesSheet = "Companies"
)

var timelineHeaders = []any{"company_name", "profile", "event_id", "created_at", "title", "tags", "description"}

// WriteTimelineWorkbook writes one Timeline row per profile and event, plus a Companies
// sheet with per-profile event counts.
func WriteTimelineWorkbook(w io.Writer, companies []domain.Company) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), timelineSheet); err != nil {
		return fmt.Errorf("failed to name timeline sheet: %w", err)
	}
	if _, err := f.NewSheet(companiesSheet); err != nil {
		return fmt.Errorf("failed to create companies sheet: %w", err)
	}

	if err := f.SetSheetRow(timelineSheet, "A1", &timelineHeaders); err != nil {
		return fmt.Errorf("failed to write timeline header: %w", err)
	}
	if err := f.SetSheetRow(companiesSheet, "A1", &[]any{"company_name", "profile", "events", "latest_event_at"}); err != nil {
		return fmt.Errorf("failed to write companies header: %w", err)
	}

	row := 2
	for idx, company := range companies {
		profile := company.FieldString("profile")
		latest := ""
		for _, ev := range company.Timeline {
			if ev.CreatedAt > latest {
				latest = ev.CreatedAt
			}
			tags := ""
			if ev.Tags != nil {
				tags = strings.Join(ev.TagList(), ", ")
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			values := []any{company.Name, profile, ev.ID, ev.CreatedAt, ev.Title, tags, ev.Description}
			if err := f.SetSheetRow(timelineSheet, cell, &values); err != nil {
				return fmt.Errorf("failed to write timeline row %d: %w", row, err)
			}
			row++
		}

		cell, _ := excelize.CoordinatesToCellName(1, idx+2)
		summary := []any{company.Name, profile, len(company.Timeline), latest}
		if err := f.SetSheetRow(companiesSheet, cell, &summary); err != nil {
			return fmt.Errorf("failed to write company row %d: %w", idx+2, err)
		}
	}

	if err := f.SetPanes(timelineSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
