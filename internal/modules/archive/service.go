package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/newsbrief/core/internal/pkg/blob"
	"go.uber.org/zap"
)

var (
	// ErrNotFound means the report id is absent from the index, or the index
	// references a body that is missing from the content store. The two
	// causes look identical to the caller.
	ErrNotFound = errors.New("report not found")
	// ErrValidation wraps malformed report input.
	ErrValidation = errors.New("validation failed")
)

const contentKeyPrefix = "reports/"

// KV is the key-value store holding the serialized index. Get returns
// ("", nil) when the key has never been written.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Service owns the archive index record and the report bodies it references.
//
// The index is a single unversioned record, so concurrent writers can race:
// the second writer's read may predate the first writer's save and clobber
// it. Accepted for the expected write rate of a few admin writes per day.
type Service struct {
	kv       KV
	blobs    blob.Store
	indexKey string
	logger   *zap.Logger
}

func NewService(kv KV, blobs blob.Store, indexKey string, logger *zap.Logger) *Service {
	return &Service{kv: kv, blobs: blobs, indexKey: indexKey, logger: logger}
}

// GetIndex loads the current index, or an empty one if none was ever saved.
func (s *Service) GetIndex(ctx context.Context) (*Index, error) {
	raw, err := s.kv.Get(ctx, s.indexKey)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if raw == "" {
		return emptyIndex(), nil
	}

	var idx Index
	if err := json.Unmarshal([]byte(raw), &idx); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if idx.Reports == nil {
		idx.Reports = []ReportMeta{}
	}
	return &idx, nil
}

func (s *Service) saveIndex(ctx context.Context, idx *Index) error {
	idx.UpdatedAt = time.Now()
	payload, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := s.kv.Set(ctx, s.indexKey, string(payload), 0); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// GetReport returns the metadata and raw body for one report.
func (s *Service) GetReport(ctx context.Context, id string) (*ReportMeta, []byte, error) {
	idx, err := s.GetIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	pos := find(idx.Reports, id)
	if pos < 0 {
		return nil, nil, ErrNotFound
	}

	meta := idx.Reports[pos]
	body, err := s.blobs.Get(ctx, meta.ContentKey)
	if errors.Is(err, blob.ErrNotFound) {
		// The index references a body that isn't there: a consistency
		// violation, distinct from a plain miss, but reported the same way.
		s.logger.Error("index entry references missing body",
			zap.String("id", id), zap.String("content_key", meta.ContentKey))
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &meta, body, nil
}

// PutReport stores a report body and upserts its index entry. The body write
// and the index write are two separate operations with no atomicity across
// them: a crash in between leaves an orphaned body, which is harmless but
// unreachable garbage.
func (s *Service) PutReport(ctx context.Context, meta ReportMeta, body []byte) (created bool, out *ReportMeta, err error) {
	if err := validateMeta(&meta); err != nil {
		return false, nil, err
	}
	if len(body) == 0 {
		return false, nil, fmt.Errorf("%w: report body must not be empty", ErrValidation)
	}
	meta.ContentKey = contentKeyPrefix + meta.ID

	// Phase one: body write, unconditional overwrite.
	if err := s.blobs.Put(ctx, meta.ContentKey, body, "text/html; charset=utf-8"); err != nil {
		return false, nil, err
	}

	// Phase two: read-modify-write on the index.
	idx, err := s.GetIndex(ctx)
	if err != nil {
		return false, nil, err
	}
	pos := find(idx.Reports, meta.ID)
	if pos >= 0 {
		idx.Reports[pos] = meta
	} else {
		idx.Reports = append(idx.Reports, meta)
		created = true
	}
	sortReports(idx.Reports)

	if err := s.saveIndex(ctx, idx); err != nil {
		return false, nil, err
	}
	return created, &meta, nil
}

// PatchReportMeta updates title and/or summary in place. The sort keys are
// untouched, so no re-sort is needed.
func (s *Service) PatchReportMeta(ctx context.Context, id string, title, summary *string) (*ReportMeta, error) {
	if title == nil && summary == nil {
		return nil, fmt.Errorf("%w: at least one of title or summary is required", ErrValidation)
	}

	idx, err := s.GetIndex(ctx)
	if err != nil {
		return nil, err
	}
	pos := find(idx.Reports, id)
	if pos < 0 {
		return nil, ErrNotFound
	}

	if title != nil {
		idx.Reports[pos].Title = *title
	}
	if summary != nil {
		idx.Reports[pos].Summary = *summary
	}

	if err := s.saveIndex(ctx, idx); err != nil {
		return nil, err
	}
	meta := idx.Reports[pos]
	return &meta, nil
}

// DeleteReport removes a report's body and its index entry. A failed body
// delete is logged and the index update proceeds anyway, which keeps the
// index consistent at the cost of possibly leaking storage.
func (s *Service) DeleteReport(ctx context.Context, id string) error {
	idx, err := s.GetIndex(ctx)
	if err != nil {
		return err
	}
	pos := find(idx.Reports, id)
	if pos < 0 {
		return ErrNotFound
	}

	if err := s.blobs.Delete(ctx, idx.Reports[pos].ContentKey); err != nil {
		s.logger.Warn("report body delete failed, removing index entry anyway",
			zap.String("id", id), zap.Error(err))
	}

	idx.Reports = append(idx.Reports[:pos], idx.Reports[pos+1:]...)
	if len(idx.Reports) == 0 {
		// An index with no reports reverts to the never-written state.
		return s.kv.Del(ctx, s.indexKey)
	}
	return s.saveIndex(ctx, idx)
}

func validateMeta(meta *ReportMeta) error {
	if meta.ID == "" || !isSafeID(meta.ID) {
		return fmt.Errorf("%w: report id must be a non-empty safe identifier", ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", meta.DateRangeStart); err != nil {
		return fmt.Errorf("%w: date_range_start must be YYYY-MM-DD", ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", meta.DateRangeEnd); err != nil {
		return fmt.Errorf("%w: date_range_end must be YYYY-MM-DD", ErrValidation)
	}
	if meta.GeneratedAt.IsZero() {
		return fmt.Errorf("%w: generated_at is required", ErrValidation)
	}
	if meta.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	return nil
}

// isSafeID accepts only alphanumerics, hyphens, and underscores; the id
// becomes part of a blob object key.
func isSafeID(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			continue
		}
		return false
	}
	return true
}
