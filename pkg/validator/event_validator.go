package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/placement-timeline/internal/domain"
)

// EventValidator checks raw timeline events before they are merged.
// Events are never rejected; problems come back as warnings so the merge stays permissive.
type EventValidator struct {
	now func() time.Time
}

// NewEventValidator creates a new event validator
func NewEventValidator() *EventValidator {
	return &EventValidator{now: time.Now}
}

// ValidationError represents a validation finding for a single field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	IsValid  bool              `json:"is_valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
}

// ValidateEvent reports fields that will degrade to defaults or sort unexpectedly.
func (v *EventValidator) ValidateEvent(event domain.RawEvent) ValidationResult {
	result := ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	if event.ID == 0 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "ID",
			Message: "missing event id; upserts will collide on id 0",
		})
	}

	if strings.TrimSpace(event.Title) == "" {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "title",
			Message: "blank title; event cannot be matched to a company",
			Value:   event.Title,
		})
	}

	if err := v.validateTimestamp("CreatedAt", event.CreatedAt); err != nil {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "CreatedAt",
			Message: err.Error(),
			Value:   event.CreatedAt,
		})
	}

	return result
}

// ValidateBatch validates every event and flags ids that occur more than once.
// Later duplicates overwrite earlier ones during an upsert.
func (v *EventValidator) ValidateBatch(events []domain.RawEvent) map[int]ValidationResult {
	results := make(map[int]ValidationResult)
	firstSeen := make(map[int64]int, len(events))

	for idx, event := range events {
		result := v.ValidateEvent(event)
		if event.ID != 0 {
			if prev, ok := firstSeen[event.ID]; ok {
				result.Warnings = append(result.Warnings, ValidationError{
					Field:   "ID",
					Message: fmt.Sprintf("duplicate id %d (first seen at position %d)", event.ID, prev),
					Value:   event.ID,
				})
			} else {
				firstSeen[event.ID] = idx
			}
		}
		if len(result.Warnings) > 0 || len(result.Errors) > 0 {
			results[idx] = result
		}
	}
	return results
}

func (v *EventValidator) validateTimestamp(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("field '%s' is empty; the event sorts last", fieldName)
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return fmt.Errorf("field '%s' must be a valid timestamp (RFC3339): %v", fieldName, err)
	}
	if ts.After(v.now().Add(365 * 24 * time.Hour)) {
		return fmt.Errorf("field '%s' is more than a year in the future", fieldName)
	}
	return nil
}
