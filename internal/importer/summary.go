package importer

import (
	"fmt"
	"strings"

	"catalog-import-service/internal/models"
)

// Summarize counts results and classifies the batch outcome. A batch is
// partial when something was written and something failed.
func Summarize(results []models.ImportResult) models.ImportSummary {
	s := models.ImportSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case models.ImportStatusCreated:
			s.Imported++
		case models.ImportStatusUpdated:
			s.Updated++
		case models.ImportStatusSkipped:
			s.Skipped++
		case models.ImportStatusError:
			s.Errors++
		}
	}

	s.Success = s.Errors == 0
	written := s.Imported + s.Updated
	switch {
	case s.Errors == 0:
		s.Outcome = models.ImportOutcomeSuccess
		s.Message = fmt.Sprintf("Import completed: %d created, %d updated, %d skipped", s.Imported, s.Updated, s.Skipped)
	case written > 0:
		s.Outcome = models.ImportOutcomePartial
		s.Message = fmt.Sprintf("Import partially completed: %d created, %d updated, %d skipped, %d failed", s.Imported, s.Updated, s.Skipped, s.Errors)
	default:
		s.Outcome = models.ImportOutcomeFailed
		s.Message = fmt.Sprintf("Import failed: %d of %d products could not be imported", s.Errors, s.Total)
	}
	return s
}

// FilterValid returns the candidates whose validation result is valid, in order
func FilterValid(candidates []models.CandidateProduct, results []models.ValidationResult) []models.CandidateProduct {
	out := make([]models.CandidateProduct, 0, len(candidates))
	for _, r := range results {
		if r.Valid && r.Index >= 0 && r.Index < len(candidates) {
			out = append(out, candidates[r.Index])
		}
	}
	return out
}

// RejectedResults reports every invalid candidate as an error import result
func RejectedResults(results []models.ValidationResult) []models.ImportResult {
	var out []models.ImportResult
	for _, r := range results {
		if r.Valid {
			continue
		}
		out = append(out, models.ImportResult{
			Name:    r.Product.Name,
			SKU:     r.Product.SKU,
			Status:  models.ImportStatusError,
			Reason:  "validation failed",
			Details: strings.Join(r.Errors, "; "),
		})
	}
	return out
}

// MergeResults places executed results back at the input positions of the
// valid candidates and fills every rejected position with its validation
// failure, so the merged slice lines up with the original batch.
func MergeResults(validation []models.ValidationResult, executed []models.ImportResult) []models.ImportResult {
	merged := make([]models.ImportResult, 0, len(validation))
	next := 0
	for _, r := range validation {
		if r.Valid && next < len(executed) {
			merged = append(merged, executed[next])
			next++
			continue
		}
		merged = append(merged, RejectedResults([]models.ValidationResult{{
			Product: r.Product,
			Errors:  r.Errors,
		}})...)
	}
	return merged
}
