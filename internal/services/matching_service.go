package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jwlee-kr/danjilink/api/internal/logger"
	"github.com/jwlee-kr/danjilink/api/internal/models"
	"github.com/jwlee-kr/danjilink/api/internal/repository"
	"github.com/jwlee-kr/danjilink/api/internal/similarity"
)

// Matching defaults and bounds. Threshold, batch size and batch count are
// operator-configurable per run; the rest are fixed engine parameters.
const (
	DefaultThreshold  = 70.0
	DefaultBatchSize  = 200
	DefaultMaxBatches = 50

	// CandidateCap bounds every candidate retrieval. Recall beats precision
	// at the retrieval stage; scoring narrows precision afterwards.
	CandidateCap = 500

	// MinRegionCandidates is the widen-out floor for manual search: a
	// sigungu-restricted result smaller than this falls back to the
	// unrestricted set.
	MinRegionCandidates = 50

	// MinQueryLength is the minimum manual search query length in runes.
	MinQueryLength = 2

	// DisplayFloor drops manual-search candidates scoring below it.
	DisplayFloor = 30.0

	// RecommendThreshold flags the top manual-search result as recommended.
	RecommendThreshold = 70.0

	// scoreTieEpsilon: manual-search scores closer than this tie-break on
	// household count instead.
	scoreTieEpsilon = 0.1

	// MaxRunErrors bounds the per-transaction error list surfaced by a run.
	MaxRunErrors = 10

	// DefaultSearchLimit and DefaultListLimit bound result lists when the
	// caller does not say otherwise.
	DefaultSearchLimit = 100
	DefaultListLimit   = 100
)

// Service-level errors.
var (
	ErrInvalidTransactionKind = errors.New("invalid transaction kind")
	ErrInvalidTransactionID   = errors.New("invalid transaction id")
	ErrInvalidComplexID       = errors.New("invalid complex id")
	ErrInvalidThreshold       = errors.New("threshold must be between 0 and 100")
	ErrInvalidBatchSize       = errors.New("batch size must be at least 1")
	ErrInvalidMaxBatches      = errors.New("max batches must be at least 1")
	ErrQueryTooShort          = fmt.Errorf("query must be at least %d characters", MinQueryLength)
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrComplexNotFound        = errors.New("complex not found")
)

// RunOptions configures one automatic matching run. A nil Threshold and zero
// BatchSize/MaxBatches fall back to the engine defaults; an explicit
// Threshold of 0 accepts every transaction with at least one candidate.
type RunOptions struct {
	Threshold  *float64
	BatchSize  int
	MaxBatches int
}

// MatchedGroup records one accepted automatic match: the transaction that was
// scored and the number of sibling rows the decision was applied to.
type MatchedGroup struct {
	AptName       string                 `json:"aptName"`
	Kind          models.TransactionKind `json:"kind"`
	TransactionID int64                  `json:"transactionId"`
	ComplexID     int64                  `json:"complexId"`
	Score         float64                `json:"score"`
	Applied       int64                  `json:"applied"`
}

// ComplexStat aggregates how many transactions a run newly linked per complex.
type ComplexStat struct {
	ComplexName string `json:"complexName"`
	ComplexID   int64  `json:"complexId"`
	Matched     int64  `json:"matched"`
}

// RunResult is the outcome of one automatic matching run.
type RunResult struct {
	MatchedGroups  []MatchedGroup `json:"matchedGroups"`
	ComplexStats   []ComplexStat  `json:"complexStats"`
	Errors         []string       `json:"errors"`
	TotalProcessed int            `json:"totalProcessed"`
	Matched        int            `json:"matched"`
	Failed         int            `json:"failed"`
	Batches        int            `json:"batches"`
}

// Candidate is one ranked manual-search result.
type Candidate struct {
	Complex     models.Complex `json:"complex"`
	Score       float64        `json:"similarityScore"`
	Recommended bool           `json:"recommended"`
}

// CommitResult reports an operator-confirmed match after bulk-apply.
type CommitResult struct {
	ComplexName  string `json:"complexName"`
	MatchedCount int64  `json:"matchedCount"`
}

// MatchingService defines the transaction-to-complex matching operations.
type MatchingService interface {
	// Run executes the automatic matching loop over all unmatched sale and
	// lease transactions, bounded by opts. Per-transaction failures are
	// collected in the result, not returned as an error. Run stops at a
	// transaction boundary when ctx is cancelled; matches applied up to that
	// point stay committed.
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)

	// SearchCandidates ranks complexes against an operator's free-text query
	// with optional region/neighborhood context.
	// Returns ErrQueryTooShort before any retrieval for queries under the
	// minimum length.
	SearchCandidates(ctx context.Context, query, regionCode, legalDong string, limit int) ([]Candidate, error)

	// Commit applies an operator-chosen match, linking the transaction and
	// all its unmatched siblings to the complex.
	Commit(ctx context.Context, kind models.TransactionKind, transactionID, complexID int64) (*CommitResult, error)

	// Unlink clears the complex link on a single transaction.
	Unlink(ctx context.Context, kind models.TransactionKind, transactionID int64) error

	// SetMatchFailed sets or clears the match-failed flag on a transaction.
	// The flag only affects listing order, never matching eligibility.
	SetMatchFailed(ctx context.Context, kind models.TransactionKind, transactionID int64, failed bool) error

	// ListUnmatched returns unmatched transactions for display, previously
	// failed rows last.
	ListUnmatched(ctx context.Context, kind models.TransactionKind, limit int) ([]models.TransactionRecord, error)
}

// matchingService is the concrete implementation of MatchingService.
type matchingService struct {
	transactions repository.TransactionRepository
	complexes    repository.ComplexRepository
	log          *logger.Logger
}

// NewMatchingService creates a new instance of MatchingService.
func NewMatchingService(transactions repository.TransactionRepository, complexes repository.ComplexRepository, log *logger.Logger) MatchingService {
	return &matchingService{
		transactions: transactions,
		complexes:    complexes,
		log:          log,
	}
}

// Run executes the automatic decision loop described in the engine design:
// page through unmatched transactions per kind, score candidates, accept the
// best candidate above the threshold, and bulk-apply the decision to the
// whole sibling group.
func (s *matchingService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	opts = withRunDefaults(opts)
	if err := validateRunOptions(opts); err != nil {
		return nil, err
	}

	s.log.Info("Starting automatic matching run", map[string]interface{}{
		"threshold":   *opts.Threshold,
		"batch_size":  opts.BatchSize,
		"max_batches": opts.MaxBatches,
	})

	result := &RunResult{
		MatchedGroups: []MatchedGroup{},
		ComplexStats:  []ComplexStat{},
		Errors:        []string{},
	}
	stats := map[int64]*ComplexStat{}

	for _, kind := range []models.TransactionKind{models.KindSale, models.KindLease} {
		if err := s.runKind(ctx, kind, opts, result, stats); err != nil {
			return nil, err
		}
	}

	for _, st := range stats {
		result.ComplexStats = append(result.ComplexStats, *st)
	}
	sort.Slice(result.ComplexStats, func(i, j int) bool {
		return result.ComplexStats[i].Matched > result.ComplexStats[j].Matched
	})

	s.log.Info("Automatic matching run finished", map[string]interface{}{
		"processed": result.TotalProcessed,
		"matched":   result.Matched,
		"failed":    result.Failed,
		"batches":   result.Batches,
		"errors":    len(result.Errors),
	})

	return result, nil
}

// runKind sweeps one transaction table with a keyset cursor. Rows matched by
// bulk-apply disappear from later pages on their own; rows left below the
// threshold are skipped by the advancing cursor instead of being rescored.
func (s *matchingService) runKind(ctx context.Context, kind models.TransactionKind, opts RunOptions, result *RunResult, stats map[int64]*ComplexStat) error {
	var cursor int64

	// Sibling groups decided earlier in this run; later rows of the same
	// group were already updated by bulk-apply.
	decided := map[string]bool{}

	for batch := 0; batch < opts.MaxBatches; batch++ {
		if err := ctx.Err(); err != nil {
			s.log.Warn("Matching run cancelled", map[string]interface{}{
				"kind":    kind,
				"batches": result.Batches,
			})
			return err
		}

		txs, err := s.transactions.ListUnmatchedAfter(ctx, kind, cursor, opts.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to load unmatched %s batch: %w", kind, err)
		}
		if len(txs) == 0 {
			break
		}
		result.Batches++

		for i := range txs {
			tx := txs[i]
			cursor = tx.ID

			if decided[siblingKey(tx)] {
				continue
			}
			result.TotalProcessed++

			if err := s.matchOne(ctx, tx, opts, result, stats, decided); err != nil {
				result.Failed++
				if len(result.Errors) < MaxRunErrors {
					result.Errors = append(result.Errors, fmt.Sprintf("%s transaction %d: %v", kind, tx.ID, err))
				}
				s.log.Error("Failed to process transaction", err, map[string]interface{}{
					"kind":           kind,
					"transaction_id": tx.ID,
				})
			}
		}

		if len(txs) < opts.BatchSize {
			break
		}
	}

	return nil
}

// matchOne scores one transaction against its candidate set and applies the
// decision if the best score clears the threshold.
func (s *matchingService) matchOne(ctx context.Context, tx models.TransactionRecord, opts RunOptions, result *RunResult, stats map[int64]*ComplexStat, decided map[string]bool) error {
	candidates, err := s.candidatesFor(ctx, tx)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		result.Failed++
		return nil
	}

	best := -1
	bestScore := -1.0
	for i := range candidates {
		// Strict comparison keeps the first-encountered candidate on ties.
		if score := similarity.CompositeScore(tx, &candidates[i], similarity.AutoMatchWeights); score > bestScore {
			best = i
			bestScore = score
		}
	}

	if bestScore < *opts.Threshold {
		result.Failed++
		s.log.Debug("Best candidate below threshold", map[string]interface{}{
			"kind":           tx.Kind,
			"transaction_id": tx.ID,
			"apt_name":       tx.AptName,
			"best_score":     bestScore,
		})
		return nil
	}

	chosen := candidates[best]
	applied, err := s.transactions.BulkApplyMatch(ctx, tx.Kind, chosen.ID, tx.AptName, tx.RegionCode, tx.LegalDong)
	if err != nil {
		return err
	}
	decided[siblingKey(tx)] = true

	// A racing run may have matched the whole group already; the IS NULL
	// guard then reports zero rows and there is nothing to record.
	if applied == 0 {
		return nil
	}

	result.Matched += int(applied)
	result.MatchedGroups = append(result.MatchedGroups, MatchedGroup{
		AptName:       tx.AptName,
		Kind:          tx.Kind,
		TransactionID: tx.ID,
		ComplexID:     chosen.ID,
		Score:         bestScore,
		Applied:       applied,
	})

	st, ok := stats[chosen.ID]
	if !ok {
		st = &ComplexStat{ComplexID: chosen.ID, ComplexName: chosen.Name}
		stats[chosen.ID] = st
	}
	st.Matched += applied

	s.log.Info("Accepted automatic match", map[string]interface{}{
		"kind":           tx.Kind,
		"transaction_id": tx.ID,
		"complex_id":     chosen.ID,
		"complex_name":   chosen.Name,
		"score":          bestScore,
		"applied":        applied,
	})

	return nil
}

// candidatesFor narrows the complex table for one transaction. A legal-dong
// filtered set is preferred; when it is empty the whole (capped) table is
// scored instead, so retrieval never starves the scorer of candidates.
func (s *matchingService) candidatesFor(ctx context.Context, tx models.TransactionRecord) ([]models.Complex, error) {
	if tx.LegalDong != "" {
		candidates, err := s.complexes.FindByLegalDong(ctx, tx.LegalDong, CandidateCap)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	return s.complexes.ListAll(ctx, CandidateCap)
}

// SearchCandidates implements the operator-facing ranked search.
func (s *matchingService) SearchCandidates(ctx context.Context, query, regionCode, legalDong string, limit int) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return nil, ErrQueryTooShort
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	candidates, err := s.searchPool(ctx, regionCode)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve search candidates: %w", err)
	}

	ranked := make([]Candidate, 0, len(candidates))
	for i := range candidates {
		score := similarity.RankScore(query, regionCode, legalDong, &candidates[i], similarity.ManualRankWeights)
		if score < DisplayFloor {
			continue
		}
		ranked = append(ranked, Candidate{Complex: candidates[i], Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		// Near-equal scores tie-break on household count, larger first.
		if math.Abs(ranked[i].Score-ranked[j].Score) < scoreTieEpsilon {
			return householdCount(&ranked[i].Complex) > householdCount(&ranked[j].Complex)
		}
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if len(ranked) > 0 && ranked[0].Score >= RecommendThreshold {
		ranked[0].Recommended = true
	}

	s.log.Info("Candidate search completed", map[string]interface{}{
		"query":       query,
		"region_code": regionCode,
		"results":     len(ranked),
	})

	return ranked, nil
}

// searchPool retrieves the manual-search candidate set: sigungu-restricted
// when a region code is supplied, widened to the whole (capped) table when
// the restricted set is too small to rank usefully.
func (s *matchingService) searchPool(ctx context.Context, regionCode string) ([]models.Complex, error) {
	if len(regionCode) >= similarity.SigunguPrefixLen {
		prefix := regionCode[:similarity.SigunguPrefixLen]
		candidates, err := s.complexes.FindByRegionPrefix(ctx, prefix, CandidateCap)
		if err != nil {
			return nil, err
		}
		if len(candidates) >= MinRegionCandidates {
			return candidates, nil
		}
	}
	return s.complexes.ListAll(ctx, CandidateCap)
}

// Commit applies an operator-chosen match using the same bulk-apply rule as
// the automatic path.
func (s *matchingService) Commit(ctx context.Context, kind models.TransactionKind, transactionID, complexID int64) (*CommitResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransactionKind, kind)
	}
	if transactionID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTransactionID, transactionID)
	}
	if complexID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidComplexID, complexID)
	}

	tx, err := s.transactions.GetByID(ctx, kind, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}

	cx, err := s.complexes.GetByID(ctx, complexID)
	if err != nil {
		return nil, fmt.Errorf("failed to load complex: %w", err)
	}
	if cx == nil {
		return nil, ErrComplexNotFound
	}

	applied, err := s.transactions.BulkApplyMatch(ctx, kind, complexID, tx.AptName, tx.RegionCode, tx.LegalDong)
	if err != nil {
		return nil, fmt.Errorf("failed to apply match: %w", err)
	}

	s.log.Info("Committed manual match", map[string]interface{}{
		"kind":           kind,
		"transaction_id": transactionID,
		"complex_id":     complexID,
		"complex_name":   cx.Name,
		"applied":        applied,
	})

	return &CommitResult{
		ComplexName:  cx.Name,
		MatchedCount: applied,
	}, nil
}

// Unlink clears the complex link on one transaction. Siblings keep theirs.
func (s *matchingService) Unlink(ctx context.Context, kind models.TransactionKind, transactionID int64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionKind, kind)
	}
	if transactionID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTransactionID, transactionID)
	}

	affected, err := s.transactions.Unlink(ctx, kind, transactionID)
	if err != nil {
		return fmt.Errorf("failed to unlink transaction: %w", err)
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}

	s.log.Info("Unlinked transaction", map[string]interface{}{
		"kind":           kind,
		"transaction_id": transactionID,
	})

	return nil
}

// SetMatchFailed flips the display-only failure flag on one transaction.
func (s *matchingService) SetMatchFailed(ctx context.Context, kind models.TransactionKind, transactionID int64, failed bool) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionKind, kind)
	}
	if transactionID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTransactionID, transactionID)
	}

	affected, err := s.transactions.SetMatchFailed(ctx, kind, transactionID, failed)
	if err != nil {
		return fmt.Errorf("failed to update match_failed: %w", err)
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}

	s.log.Info("Updated match_failed flag", map[string]interface{}{
		"kind":           kind,
		"transaction_id": transactionID,
		"failed":         failed,
	})

	return nil
}

// ListUnmatched returns unmatched transactions for the operator UI.
func (s *matchingService) ListUnmatched(ctx context.Context, kind models.TransactionKind, limit int) ([]models.TransactionRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransactionKind, kind)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	txs, err := s.transactions.ListUnmatched(ctx, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unmatched transactions: %w", err)
	}
	return txs, nil
}

// siblingKey identifies the bulk-apply group a transaction belongs to.
func siblingKey(tx models.TransactionRecord) string {
	return string(tx.Kind) + "|" + tx.AptName + "|" + tx.RegionCode + "|" + tx.LegalDong
}

func householdCount(c *models.Complex) int {
	if c.HoCnt == nil {
		return 0
	}
	return *c.HoCnt
}

func withRunDefaults(opts RunOptions) RunOptions {
	if opts.Threshold == nil {
		threshold := float64(DefaultThreshold)
		opts.Threshold = &threshold
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxBatches == 0 {
		opts.MaxBatches = DefaultMaxBatches
	}
	return opts
}

func validateRunOptions(opts RunOptions) error {
	if *opts.Threshold < 0 || *opts.Threshold > 100 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, *opts.Threshold)
	}
	if opts.BatchSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, opts.BatchSize)
	}
	if opts.MaxBatches < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxBatches, opts.MaxBatches)
	}
	return nil
}
