package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"catalog-import-service/internal/models"
)

// ============================================================================
// Decision procedure
// ============================================================================

func TestExecute_CreatesIntoEmptyStore(t *testing.T) {
	store := newMemStore("1")
	e := NewExecutor(store, quietLogger())

	results, summary, err := e.Execute(context.Background(), []models.CandidateProduct{tee("TSH-01")}, models.ImportOptions{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.ImportStatusCreated, results[0].Status)
	assert.Equal(t, "TSH-01", results[0].SKU)
	assert.False(t, results[0].SKUChanged)
	assert.NotEmpty(t, results[0].ProductID)
	assert.Equal(t, 1, summary.Imported)
	assert.True(t, summary.Success)
	assert.Equal(t, models.ImportOutcomeSuccess, summary.Outcome)
}

func TestExecute_UpdateExistingIsIdempotent(t *testing.T) {
	store := newMemStore("1")
	e := NewExecutor(store, quietLogger())
	opts := models.ImportOptions{UpdateExisting: true}
	batch := []models.CandidateProduct{tee("TSH-01")}

	first, _, err := e.Execute(context.Background(), batch, opts)
	require.NoError(t, err)
	second, summary, err := e.Execute(context.Background(), batch, opts)
	require.NoError(t, err)

	assert.Equal(t, models.ImportStatusCreated, first[0].Status)
	assert.Equal(t, models.ImportStatusUpdated, second[0].Status)
	assert.Equal(t, first[0].ProductID, second[0].ProductID)
	assert.Equal(t, 1, store.count())
	assert.Equal(t, 1, summary.Updated)
}

func TestExecute_SkipDuplicatesNeverCreates(t *testing.T) {
	existing := uuid.New()
	m := new(MockProductStore)
	m.On("FindBySKU", mock.Anything, "TSH-01").Return(true, existing, &models.Product{ID: existing}, nil)
	e := NewExecutor(m, quietLogger())

	results, summary, err := e.Execute(context.Background(), []models.CandidateProduct{tee("TSH-01")}, models.ImportOptions{SkipDuplicates: true})

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusSkipped, results[0].Status)
	assert.Equal(t, "SKU already exists", results[0].Reason)
	assert.Equal(t, 1, summary.Skipped)
	assert.True(t, summary.Success)
	m.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	m.AssertNotCalled(t, "UpdateProduct", mock.Anything, mock.Anything, mock.Anything)
	m.AssertExpectations(t)
}

func TestExecute_UpdateExistingWinsOverSkip(t *testing.T) {
	store := newMemStore("1")
	store.seed("TSH-01")
	e := NewExecutor(store, quietLogger())

	results, _, err := e.Execute(context.Background(), []models.CandidateProduct{tee("TSH-01")},
		models.ImportOptions{UpdateExisting: true, SkipDuplicates: true})

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusUpdated, results[0].Status)
	assert.Equal(t, 1, store.updateCalls)
}

func TestExecute_CollisionGetsSuffix(t *testing.T) {
	store := newMemStore("1")
	store.seed("TSH-01")
	store.seed("TSH-01-2")
	e := NewExecutor(store, quietLogger())

	results, summary, err := e.Execute(context.Background(), []models.CandidateProduct{tee("TSH-01")}, models.ImportOptions{})

	require.NoError(t, err)
	r := results[0]
	assert.Equal(t, models.ImportStatusCreated, r.Status)
	assert.True(t, r.SKUChanged)
	assert.Equal(t, "TSH-01", r.OriginalSKU)
	assert.Equal(t, "TSH-01-3", r.SKU)
	assert.Equal(t, 3, store.count())
	assert.Equal(t, 1, summary.Imported)
}

func TestExecute_LateCollisionFollowsOptions(t *testing.T) {
	t.Run("rename", func(t *testing.T) {
		store := newMemStore("1")
		store.raceOnCreate["TSH-01"] = true
		e := NewExecutor(store, quietLogger())

		results, _, err := e.Execute(context.Background(), []models.CandidateProduct{tee("TSH-01")}, models.ImportOptions{})

		require.NoError(t, err)
		assert.Equal(t, models.ImportStatusCreated, results[0].Status)
		assert.True(t, results[0].SKUChanged)
		assert.Equal(t, "TSH-01-2", results[0].SKU)
	})

	t.Run("update", func(t *testing.T) {
		store := newMemStore("1")
		store.raceOnCreate["TSH-01"] = true
		e := NewExecutor(store, quietLogger())

		results, _, err := e.Execute(context.Background(), []models.CandidateProduct{tee("TSH-01")}, models.ImportOptions{UpdateExisting: true})

		require.NoError(t, err)
		assert.Equal(t, models.ImportStatusUpdated, results[0].Status)
		assert.Equal(t, 1, store.count())
	})

	t.Run("skip", func(t *testing.T) {
		store := newMemStore("1")
		store.raceOnCreate["TSH-01"] = true
		e := NewExecutor(store, quietLogger())

		results, _, err := e.Execute(context.Background(), []models.CandidateProduct{tee("TSH-01")}, models.ImportOptions{SkipDuplicates: true})

		require.NoError(t, err)
		assert.Equal(t, models.ImportStatusSkipped, results[0].Status)
	})
}

// ============================================================================
// Partial failure
// ============================================================================

func TestExecute_PersistenceFailureDoesNotAbortBatch(t *testing.T) {
	store := newMemStore("1")
	store.failCreate["B"] = errors.New("disk full")
	e := NewExecutor(store, quietLogger())

	results, summary, err := e.Execute(context.Background(),
		[]models.CandidateProduct{tee("A"), tee("B"), tee("C")}, models.ImportOptions{})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, models.ImportStatusCreated, results[0].Status)
	assert.Equal(t, models.ImportStatusError, results[1].Status)
	assert.Equal(t, "failed to create product", results[1].Reason)
	assert.Equal(t, "disk full", results[1].Details)
	assert.Equal(t, models.ImportStatusCreated, results[2].Status)

	assert.False(t, summary.Success)
	assert.Equal(t, models.ImportOutcomePartial, summary.Outcome)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Errors)
}

func TestExecute_DefensivePrecheck(t *testing.T) {
	store := newMemStore("1")
	e := NewExecutor(store, quietLogger())
	bad := tee("TSH-01")
	bad.Price = price("0")
	missingVariantColor := tee("TSH-02")
	missingVariantColor.Variants[0].Color = ""

	results, summary, err := e.Execute(context.Background(),
		[]models.CandidateProduct{bad, missingVariantColor, {}}, models.ImportOptions{})

	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, models.ImportStatusError, r.Status)
		assert.Equal(t, "invalid record", r.Reason)
	}
	assert.Equal(t, "price must be greater than 0", results[0].Details)
	assert.Contains(t, results[1].Details, "variants[0].color is required")
	assert.Equal(t, 0, store.createCalls)
	assert.Equal(t, models.ImportOutcomeFailed, summary.Outcome)
}

func TestExecute_LookupFailureIsRecordError(t *testing.T) {
	m := new(MockProductStore)
	m.On("FindBySKU", mock.Anything, "A").Return(false, uuid.Nil, nil, errors.New("timeout"))
	m.On("FindBySKU", mock.Anything, "B").Return(false, uuid.Nil, nil, nil)
	m.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *models.Product) bool { return p.SKU == "B" })).
		Return(uuid.New(), nil)
	e := NewExecutor(m, quietLogger())

	results, _, err := e.Execute(context.Background(), []models.CandidateProduct{tee("A"), tee("B")}, models.ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusError, results[0].Status)
	assert.Equal(t, "timeout", results[0].Details)
	assert.Equal(t, models.ImportStatusCreated, results[1].Status)
	m.AssertExpectations(t)
}

func TestExecute_SuffixExhaustion(t *testing.T) {
	store := newMemStore("1")
	store.seed("A")
	store.seed("A-2")
	store.seed("A-3")
	e := NewExecutor(store, quietLogger())
	e.maxSuffix = 3

	results, _, err := e.Execute(context.Background(), []models.CandidateProduct{tee("A")}, models.ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusError, results[0].Status)
	assert.Equal(t, ErrSKUSuffixExhausted.Error(), results[0].Details)
}

func TestExecute_NilStoreFailsFast(t *testing.T) {
	e := NewExecutor(nil, quietLogger())

	results, _, err := e.Execute(context.Background(), []models.CandidateProduct{tee("A")}, models.ImportOptions{})

	assert.ErrorIs(t, err, ErrNilStore)
	assert.Nil(t, results)
}

// ============================================================================
// Summary
// ============================================================================

func TestSummarize_DistinguishesOutcomes(t *testing.T) {
	created := models.ImportResult{Status: models.ImportStatusCreated}
	updated := models.ImportResult{Status: models.ImportStatusUpdated}
	skipped := models.ImportResult{Status: models.ImportStatusSkipped}
	failedResult := models.ImportResult{Status: models.ImportStatusError}

	success := Summarize([]models.ImportResult{created, skipped})
	partial := Summarize([]models.ImportResult{updated, failedResult})
	failure := Summarize([]models.ImportResult{skipped, failedResult})
	empty := Summarize(nil)

	assert.Equal(t, models.ImportOutcomeSuccess, success.Outcome)
	assert.True(t, success.Success)
	assert.Equal(t, models.ImportOutcomePartial, partial.Outcome)
	assert.False(t, partial.Success)
	assert.Equal(t, models.ImportOutcomeFailed, failure.Outcome)
	assert.Equal(t, models.ImportOutcomeSuccess, empty.Outcome)

	messages := map[string]bool{success.Message: true, partial.Message: true, failure.Message: true}
	assert.Len(t, messages, 3)
}

func TestFilterValidAndRejected(t *testing.T) {
	candidates := []models.CandidateProduct{tee("A"), tee("B"), tee("C")}
	results := []models.ValidationResult{
		{Index: 0, Valid: true},
		{Index: 1, Valid: false, Product: models.ProductRef{Name: "Tee", SKU: "B"}, Errors: []string{"x", "y"}},
		{Index: 2, Valid: true},
	}

	valid := FilterValid(candidates, results)
	rejected := RejectedResults(results)

	require.Len(t, valid, 2)
	assert.Equal(t, "A", valid[0].SKU)
	assert.Equal(t, "C", valid[1].SKU)
	require.Len(t, rejected, 1)
	assert.Equal(t, "B", rejected[0].SKU)
	assert.Equal(t, "x; y", rejected[0].Details)
	assert.Equal(t, models.ImportStatusError, rejected[0].Status)
}

func TestMergeResults_RestoresInputOrder(t *testing.T) {
	validation := []models.ValidationResult{
		{Index: 0, Valid: false, Product: models.ProductRef{SKU: "A"}, Errors: []string{"name is required"}},
		{Index: 1, Valid: true, Product: models.ProductRef{SKU: "B"}},
		{Index: 2, Valid: false, Product: models.ProductRef{SKU: "C"}, Errors: []string{"price must be greater than 0"}},
		{Index: 3, Valid: true, Product: models.ProductRef{SKU: "D"}},
	}
	executed := []models.ImportResult{
		{SKU: "B", Status: models.ImportStatusCreated},
		{SKU: "D", Status: models.ImportStatusSkipped},
	}

	merged := MergeResults(validation, executed)

	require.Len(t, merged, 4)
	skus := []string{merged[0].SKU, merged[1].SKU, merged[2].SKU, merged[3].SKU}
	assert.Equal(t, []string{"A", "B", "C", "D"}, skus)
	assert.Equal(t, models.ImportStatusError, merged[0].Status)
	assert.Equal(t, "validation failed", merged[2].Reason)
	assert.Equal(t, models.ImportStatusSkipped, merged[3].Status)

	summary := Summarize(merged)
	assert.Equal(t, models.ImportOutcomePartial, summary.Outcome)
	assert.Equal(t, 2, summary.Errors)
}
