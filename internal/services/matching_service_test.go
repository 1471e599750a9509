package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jwlee-kr/danjilink/api/internal/logger"
	"github.com/jwlee-kr/danjilink/api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTransactionRepository is a mock implementation of TransactionRepository for testing
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, kind models.TransactionKind, id int64) (*models.TransactionRecord, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransactionRecord), args.Error(1)
}

func (m *MockTransactionRepository) ListUnmatched(ctx context.Context, kind models.TransactionKind, limit int) ([]models.TransactionRecord, error) {
	args := m.Called(ctx, kind, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TransactionRecord), args.Error(1)
}

func (m *MockTransactionRepository) ListUnmatchedAfter(ctx context.Context, kind models.TransactionKind, afterID int64, limit int) ([]models.TransactionRecord, error) {
	args := m.Called(ctx, kind, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TransactionRecord), args.Error(1)
}

func (m *MockTransactionRepository) BulkApplyMatch(ctx context.Context, kind models.TransactionKind, complexID int64, aptName, regionCode, legalDong string) (int64, error) {
	args := m.Called(ctx, kind, complexID, aptName, regionCode, legalDong)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) Unlink(ctx context.Context, kind models.TransactionKind, id int64) (int64, error) {
	args := m.Called(ctx, kind, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) SetMatchFailed(ctx context.Context, kind models.TransactionKind, id int64, failed bool) (int64, error) {
	args := m.Called(ctx, kind, id, failed)
	return args.Get(0).(int64), args.Error(1)
}

// MockComplexRepository is a mock implementation of ComplexRepository for testing
type MockComplexRepository struct {
	mock.Mock
}

func (m *MockComplexRepository) GetByID(ctx context.Context, id int64) (*models.Complex, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complex), args.Error(1)
}

func (m *MockComplexRepository) FindByLegalDong(ctx context.Context, legalDong string, limit int) ([]models.Complex, error) {
	args := m.Called(ctx, legalDong, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Complex), args.Error(1)
}

func (m *MockComplexRepository) FindByRegionPrefix(ctx context.Context, prefix string, limit int) ([]models.Complex, error) {
	args := m.Called(ctx, prefix, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Complex), args.Error(1)
}

func (m *MockComplexRepository) ListAll(ctx context.Context, limit int) ([]models.Complex, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Complex), args.Error(1)
}

func newTestService(txRepo *MockTransactionRepository, cxRepo *MockComplexRepository) MatchingService {
	return NewMatchingService(txRepo, cxRepo, logger.New("test"))
}

func strPtr(s string) *string     { return &s }
func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

// unmatchedFixture is one unmatched sale transaction with three candidate
// complexes: one strong match and two weak ones.
func unmatchedFixture() (models.TransactionRecord, []models.Complex) {
	tx := models.TransactionRecord{
		ID:         1,
		Kind:       models.KindSale,
		AptName:    "센트럴파크아파트",
		RegionCode: "1168010100",
		LegalDong:  "역삼동",
		Jibun:      "123-45",
	}
	candidates := []models.Complex{
		{ID: 10, Name: "센트럴파크", RegionCode: "1168010100", LegalDong: "역삼동", Jibun: strPtr("123-45")},
		{ID: 11, Name: "전혀다른이름", RegionCode: "2635010100", LegalDong: "목동", Jibun: strPtr("9")},
		{ID: 12, Name: "무관한단지명", RegionCode: "2635010100", LegalDong: "서초동", Jibun: strPtr("777")},
	}
	return tx, candidates
}

func TestRun_AcceptsMatchAndAppliesToSiblings(t *testing.T) {
	// Arrange
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	tx, candidates := unmatchedFixture()

	txRepo.On("ListUnmatchedAfter", ctx, models.KindSale, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{tx}, nil)
	txRepo.On("ListUnmatchedAfter", ctx, models.KindLease, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{}, nil)
	cxRepo.On("FindByLegalDong", ctx, "역삼동", CandidateCap).Return(candidates, nil)

	// Three sibling rows (same building, three units) get the decision.
	txRepo.On("BulkApplyMatch", ctx, models.KindSale, int64(10),
		"센트럴파크아파트", "1168010100", "역삼동").Return(int64(3), nil)

	// Act
	result, err := service.Run(ctx, RunOptions{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalProcessed)
	assert.Equal(t, 3, result.Matched)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.Batches)

	require.Len(t, result.MatchedGroups, 1)
	assert.Equal(t, int64(1), result.MatchedGroups[0].TransactionID)
	assert.Equal(t, int64(10), result.MatchedGroups[0].ComplexID)
	assert.Equal(t, int64(3), result.MatchedGroups[0].Applied)
	assert.GreaterOrEqual(t, result.MatchedGroups[0].Score, DefaultThreshold)

	require.Len(t, result.ComplexStats, 1)
	assert.Equal(t, int64(10), result.ComplexStats[0].ComplexID)
	assert.Equal(t, "센트럴파크", result.ComplexStats[0].ComplexName)
	assert.Equal(t, int64(3), result.ComplexStats[0].Matched)

	txRepo.AssertExpectations(t)
	cxRepo.AssertExpectations(t)
}

func TestRun_BelowThresholdLeavesTransactionUnmatched(t *testing.T) {
	// Arrange
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	tx, candidates := unmatchedFixture()
	// Kill the lot-number signal: best achievable is dong + name = 60.
	tx.Jibun = "999"

	txRepo.On("ListUnmatchedAfter", ctx, models.KindSale, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{tx}, nil)
	txRepo.On("ListUnmatchedAfter", ctx, models.KindLease, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{}, nil)
	cxRepo.On("FindByLegalDong", ctx, "역삼동", CandidateCap).Return(candidates, nil)

	// Act
	result, err := service.Run(ctx, RunOptions{})

	// Assert: nothing applied, no match_failed side effect either
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalProcessed)
	assert.Equal(t, 0, result.Matched)
	assert.Equal(t, 1, result.Failed)
	txRepo.AssertNotCalled(t, "BulkApplyMatch")
	txRepo.AssertNotCalled(t, "SetMatchFailed")
}

func TestRun_ExplicitZeroThresholdAcceptsEverything(t *testing.T) {
	// Threshold 0 is a real operator choice, not the "unset" sentinel: the
	// same weak-scoring transaction that default options reject must be
	// accepted when 0 is passed explicitly.
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	tx, candidates := unmatchedFixture()
	// Same weak fixture as the rejection test: best achievable is 60.
	tx.Jibun = "999"

	txRepo.On("ListUnmatchedAfter", ctx, models.KindSale, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{tx}, nil)
	txRepo.On("ListUnmatchedAfter", ctx, models.KindLease, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{}, nil)
	cxRepo.On("FindByLegalDong", ctx, "역삼동", CandidateCap).Return(candidates, nil)
	txRepo.On("BulkApplyMatch", ctx, models.KindSale, int64(10),
		"센트럴파크아파트", "1168010100", "역삼동").Return(int64(1), nil)

	result, err := service.Run(ctx, RunOptions{Threshold: floatPtr(0)})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, 0, result.Failed)
	txRepo.AssertExpectations(t)
}

func TestRun_ThresholdMonotonicity(t *testing.T) {
	// Raising the threshold never increases the number of accepted matches
	// over a fixed candidate set.
	matchedAt := func(threshold float64) int {
		txRepo := new(MockTransactionRepository)
		cxRepo := new(MockComplexRepository)
		service := newTestService(txRepo, cxRepo)

		ctx := context.Background()
		tx, candidates := unmatchedFixture()
		// Off-by-one lot number caps the best score below 100 so high
		// thresholds actually reject it.
		tx.Jibun = "124"

		txRepo.On("ListUnmatchedAfter", ctx, models.KindSale, int64(0), DefaultBatchSize).
			Return([]models.TransactionRecord{tx}, nil)
		txRepo.On("ListUnmatchedAfter", ctx, models.KindLease, int64(0), DefaultBatchSize).
			Return([]models.TransactionRecord{}, nil)
		cxRepo.On("FindByLegalDong", ctx, "역삼동", CandidateCap).Return(candidates, nil)
		txRepo.On("BulkApplyMatch", ctx, models.KindSale, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil).Maybe()

		result, err := service.Run(ctx, RunOptions{Threshold: &threshold})
		require.NoError(t, err)
		return result.Matched
	}

	previous := matchedAt(10)
	for _, threshold := range []float64{30, 50, 70, 90, 100} {
		current := matchedAt(threshold)
		assert.LessOrEqual(t, current, previous, "threshold %v accepted more than a lower one", threshold)
		previous = current
	}
}

func TestRun_FallsBackToUnfilteredCandidates(t *testing.T) {
	// Arrange: no complex shares the neighborhood, so retrieval widens out.
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	tx, candidates := unmatchedFixture()

	txRepo.On("ListUnmatchedAfter", ctx, models.KindSale, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{tx}, nil)
	txRepo.On("ListUnmatchedAfter", ctx, models.KindLease, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{}, nil)
	cxRepo.On("FindByLegalDong", ctx, "역삼동", CandidateCap).Return([]models.Complex{}, nil)
	cxRepo.On("ListAll", ctx, CandidateCap).Return(candidates, nil)
	txRepo.On("BulkApplyMatch", ctx, models.KindSale, int64(10),
		"센트럴파크아파트", "1168010100", "역삼동").Return(int64(1), nil)

	// Act
	result, err := service.Run(ctx, RunOptions{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	cxRepo.AssertExpectations(t)
}

func TestRun_NoCandidatesCountsAsFailed(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	tx, _ := unmatchedFixture()

	txRepo.On("ListUnmatchedAfter", ctx, models.KindSale, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{tx}, nil)
	txRepo.On("ListUnmatchedAfter", ctx, models.KindLease, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{}, nil)
	cxRepo.On("FindByLegalDong", ctx, "역삼동", CandidateCap).Return([]models.Complex{}, nil)
	cxRepo.On("ListAll", ctx, CandidateCap).Return([]models.Complex{}, nil)

	result, err := service.Run(ctx, RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)
	assert.Equal(t, 1, result.Failed)
	txRepo.AssertNotCalled(t, "BulkApplyMatch")
}

func TestRun_PerTransactionErrorsAreCollectedNotFatal(t *testing.T) {
	// Arrange: candidate retrieval blows up for the first transaction but the
	// second one still gets processed.
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	tx1, candidates := unmatchedFixture()
	tx2 := tx1
	tx2.ID = 2
	tx2.AptName = "래미안강남"
	tx2.LegalDong = "대치동"

	txRepo.On("ListUnmatchedAfter", ctx, models.KindSale, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{tx1, tx2}, nil)
	txRepo.On("ListUnmatchedAfter", ctx, models.KindLease, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{}, nil)

	cxRepo.On("FindByLegalDong", ctx, "역삼동", CandidateCap).
		Return(nil, errors.New("connection reset"))
	cxRepo.On("FindByLegalDong", ctx, "대치동", CandidateCap).Return(candidates, nil)

	// Act
	result, err := service.Run(ctx, RunOptions{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 2, result.Failed) // one error, one below threshold
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "sale transaction 1")
	assert.Contains(t, result.Errors[0], "connection reset")
}

func TestRun_ErrorListIsBounded(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()

	txs := make([]models.TransactionRecord, 0, 25)
	for i := 1; i <= 25; i++ {
		txs = append(txs, models.TransactionRecord{
			ID:         int64(i),
			Kind:       models.KindSale,
			AptName:    fmt.Sprintf("단지%d", i),
			RegionCode: "1168010100",
			LegalDong:  "역삼동",
			Jibun:      "1",
		})
	}

	txRepo.On("ListUnmatchedAfter", ctx, models.KindSale, int64(0), DefaultBatchSize).
		Return(txs, nil)
	txRepo.On("ListUnmatchedAfter", ctx, models.KindLease, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{}, nil)
	cxRepo.On("FindByLegalDong", ctx, "역삼동", CandidateCap).
		Return(nil, errors.New("boom"))

	result, err := service.Run(ctx, RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 25, result.Failed)
	assert.Len(t, result.Errors, MaxRunErrors)
}

func TestRun_SiblingAlreadyDecidedInSameBatchIsSkipped(t *testing.T) {
	// Two units of the same building in one batch: the first decision covers
	// both rows, so the second row is never rescored.
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	tx1, candidates := unmatchedFixture()
	tx2 := tx1
	tx2.ID = 2

	txRepo.On("ListUnmatchedAfter", ctx, models.KindSale, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{tx1, tx2}, nil)
	txRepo.On("ListUnmatchedAfter", ctx, models.KindLease, int64(0), DefaultBatchSize).
		Return([]models.TransactionRecord{}, nil)
	cxRepo.On("FindByLegalDong", ctx, "역삼동", CandidateCap).Return(candidates, nil).Once()
	txRepo.On("BulkApplyMatch", ctx, models.KindSale, int64(10),
		"센트럴파크아파트", "1168010100", "역삼동").Return(int64(2), nil).Once()

	result, err := service.Run(ctx, RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalProcessed)
	assert.Equal(t, 2, result.Matched)
	txRepo.AssertExpectations(t)
	cxRepo.AssertExpectations(t)
}

func TestRun_CancelledContextStopsTheRun(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := service.Run(ctx, RunOptions{})

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	txRepo.AssertNotCalled(t, "ListUnmatchedAfter")
}

func TestRun_InvalidOptions(t *testing.T) {
	service := newTestService(new(MockTransactionRepository), new(MockComplexRepository))
	ctx := context.Background()

	_, err := service.Run(ctx, RunOptions{Threshold: floatPtr(101)})
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	_, err = service.Run(ctx, RunOptions{BatchSize: -1})
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = service.Run(ctx, RunOptions{MaxBatches: -1})
	assert.ErrorIs(t, err, ErrInvalidMaxBatches)
}

func TestSearchCandidates_QueryTooShort(t *testing.T) {
	// A one-character query is rejected before any candidate retrieval.
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	results, err := service.SearchCandidates(context.Background(), "파", "", "", 100)

	assert.ErrorIs(t, err, ErrQueryTooShort)
	assert.Nil(t, results)
	cxRepo.AssertNotCalled(t, "FindByRegionPrefix")
	cxRepo.AssertNotCalled(t, "ListAll")
}

func TestSearchCandidates_WhitespaceOnlyQueryRejected(t *testing.T) {
	service := newTestService(new(MockTransactionRepository), new(MockComplexRepository))

	_, err := service.SearchCandidates(context.Background(), "   ", "", "", 100)
	assert.ErrorIs(t, err, ErrQueryTooShort)
}

func TestSearchCandidates_RanksAndRecommends(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	pool := []models.Complex{
		{ID: 1, Name: "센트럴파크", RegionCode: "1168010100", LegalDong: "역삼동"},
		{ID: 2, Name: "센트럴파크타워", RegionCode: "1168010100", LegalDong: "역삼동"},
		{ID: 3, Name: "완전무관한곳", RegionCode: "2635010100", LegalDong: "목동"},
	}
	cxRepo.On("ListAll", ctx, CandidateCap).Return(pool, nil)

	results, err := service.SearchCandidates(ctx, "센트럴파크", "", "역삼동", 100)

	require.NoError(t, err)
	// The unrelated complex falls below the display floor.
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].Complex.ID)
	assert.True(t, results[0].Recommended)
	assert.False(t, results[1].Recommended)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearchCandidates_HouseholdCountBreaksNearTies(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	// Identical names score identically; the bigger complex ranks first.
	pool := []models.Complex{
		{ID: 1, Name: "센트럴파크", HoCnt: intPtr(120)},
		{ID: 2, Name: "센트럴파크", HoCnt: intPtr(980)},
	}
	cxRepo.On("ListAll", ctx, CandidateCap).Return(pool, nil)

	results, err := service.SearchCandidates(ctx, "센트럴파크", "", "", 100)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Complex.ID)
}

func TestSearchCandidates_RegionRestrictedThenWidened(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	// Too few sigungu-local complexes: the search widens to the full table.
	local := []models.Complex{{ID: 1, Name: "센트럴파크", RegionCode: "1168010100"}}
	full := []models.Complex{
		{ID: 1, Name: "센트럴파크", RegionCode: "1168010100"},
		{ID: 2, Name: "센트럴파크시티", RegionCode: "2635010100"},
	}
	cxRepo.On("FindByRegionPrefix", ctx, "11680", CandidateCap).Return(local, nil)
	cxRepo.On("ListAll", ctx, CandidateCap).Return(full, nil)

	results, err := service.SearchCandidates(ctx, "센트럴파크", "1168010100", "", 100)

	require.NoError(t, err)
	assert.Len(t, results, 2)
	cxRepo.AssertExpectations(t)
}

func TestSearchCandidates_LimitApplied(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	pool := []models.Complex{
		{ID: 1, Name: "센트럴파크"},
		{ID: 2, Name: "센트럴파크타워"},
		{ID: 3, Name: "센트럴파크시티"},
	}
	cxRepo.On("ListAll", ctx, CandidateCap).Return(pool, nil)

	results, err := service.SearchCandidates(ctx, "센트럴파크", "", "", 2)

	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestCommit_Success(t *testing.T) {
	// Arrange
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	tx, candidates := unmatchedFixture()
	chosen := candidates[0]

	txRepo.On("GetByID", ctx, models.KindSale, int64(1)).Return(&tx, nil)
	cxRepo.On("GetByID", ctx, int64(10)).Return(&chosen, nil)
	txRepo.On("BulkApplyMatch", ctx, models.KindSale, int64(10),
		"센트럴파크아파트", "1168010100", "역삼동").Return(int64(4), nil)

	// Act
	result, err := service.Commit(ctx, models.KindSale, 1, 10)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.MatchedCount)
	assert.Equal(t, "센트럴파크", result.ComplexName)
	txRepo.AssertExpectations(t)
	cxRepo.AssertExpectations(t)
}

func TestCommit_TransactionNotFound(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	txRepo.On("GetByID", ctx, models.KindSale, int64(404)).Return(nil, nil)

	result, err := service.Commit(ctx, models.KindSale, 404, 10)

	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.Nil(t, result)
	txRepo.AssertNotCalled(t, "BulkApplyMatch")
}

func TestCommit_ComplexNotFound(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	tx, _ := unmatchedFixture()

	txRepo.On("GetByID", ctx, models.KindSale, int64(1)).Return(&tx, nil)
	cxRepo.On("GetByID", ctx, int64(404)).Return(nil, nil)

	result, err := service.Commit(ctx, models.KindSale, 1, 404)

	assert.ErrorIs(t, err, ErrComplexNotFound)
	assert.Nil(t, result)
	txRepo.AssertNotCalled(t, "BulkApplyMatch")
}

func TestCommit_InvalidInput(t *testing.T) {
	service := newTestService(new(MockTransactionRepository), new(MockComplexRepository))
	ctx := context.Background()

	_, err := service.Commit(ctx, "auction", 1, 10)
	assert.ErrorIs(t, err, ErrInvalidTransactionKind)

	_, err = service.Commit(ctx, models.KindSale, 0, 10)
	assert.ErrorIs(t, err, ErrInvalidTransactionID)

	_, err = service.Commit(ctx, models.KindSale, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidComplexID)
}

func TestUnlink_Success(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	txRepo.On("Unlink", ctx, models.KindLease, int64(7)).Return(int64(1), nil)

	err := service.Unlink(ctx, models.KindLease, 7)

	require.NoError(t, err)
	txRepo.AssertExpectations(t)
}

func TestUnlink_NotFound(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	txRepo.On("Unlink", ctx, models.KindSale, int64(404)).Return(int64(0), nil)

	err := service.Unlink(ctx, models.KindSale, 404)

	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestSetMatchFailed_SetAndClear(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	txRepo.On("SetMatchFailed", ctx, models.KindSale, int64(5), true).Return(int64(1), nil)
	txRepo.On("SetMatchFailed", ctx, models.KindSale, int64(5), false).Return(int64(1), nil)

	require.NoError(t, service.SetMatchFailed(ctx, models.KindSale, 5, true))
	require.NoError(t, service.SetMatchFailed(ctx, models.KindSale, 5, false))
	txRepo.AssertExpectations(t)
}

func TestSetMatchFailed_NotFound(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	txRepo.On("SetMatchFailed", ctx, models.KindLease, int64(404), true).Return(int64(0), nil)

	err := service.SetMatchFailed(ctx, models.KindLease, 404, true)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestListUnmatched_InvalidKind(t *testing.T) {
	service := newTestService(new(MockTransactionRepository), new(MockComplexRepository))

	_, err := service.ListUnmatched(context.Background(), "auction", 10)
	assert.ErrorIs(t, err, ErrInvalidTransactionKind)
}

func TestListUnmatched_DefaultLimit(t *testing.T) {
	txRepo := new(MockTransactionRepository)
	cxRepo := new(MockComplexRepository)
	service := newTestService(txRepo, cxRepo)

	ctx := context.Background()
	txRepo.On("ListUnmatched", ctx, models.KindSale, DefaultListLimit).
		Return([]models.TransactionRecord{}, nil)

	txs, err := service.ListUnmatched(ctx, models.KindSale, 0)

	require.NoError(t, err)
	assert.Empty(t, txs)
	txRepo.AssertExpectations(t)
}
