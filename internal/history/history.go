package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vortexconv/internal/batch"
	"vortexconv/internal/link"
	"vortexconv/internal/logger"
	"vortexconv/internal/model"
	"vortexconv/internal/render"
)

// Recorder persists conversion runs and their per-link failures.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// FailureKind classifies a per-link error for storage and reports.
func FailureKind(err error) string {
	if kind := link.KindOf(err); kind != "" {
		return string(kind)
	}
	var unsupported *render.UnsupportedError
	if errors.As(err, &unsupported) {
		return "render"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "other"
}

// Record stores report as a new run. A nil Recorder records nothing, so
// callers without a database can call it unconditionally.
func (r *Recorder) Record(ctx context.Context, source string, report *batch.Report) (*model.ConversionRun, error) {
	if r == nil || report == nil {
		return nil, nil
	}

	run := &model.ConversionRun{
		RunID:      uuid.NewString(),
		Format:     report.Format,
		Source:     source,
		Succeeded:  len(report.Succeeded),
		Failed:     len(report.Failed),
		Duplicates: report.Duplicates,
	}
	for _, f := range report.Failed {
		run.Failures = append(run.Failures, model.LinkFailure{
			Position: f.Position,
			Link:     batch.Truncate(f.Link, 200),
			Kind:     FailureKind(f.Err),
			Message:  f.Err.Error(),
		})
	}

	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	logger.Log.Debugf("Recorded run %s (%s): %d ok, %d failed", run.RunID, run.Format, run.Succeeded, run.Failed)
	return run, nil
}

type FormatCount struct {
	Format string
	Runs   int64
}

type KindCount struct {
	Kind  string
	Count int64
}

type Summary struct {
	Runs       int64
	Succeeded  int64
	Failed     int64
	Duplicates int64
	LastRun    *time.Time
	Formats    []FormatCount
	TopKinds   []KindCount
}

// Summary aggregates all stored runs.
func (r *Recorder) Summary(ctx context.Context) (*Summary, error) {
	db := r.db.WithContext(ctx)
	s := &Summary{}

	var totals struct {
		Runs       int64
		Succeeded  int64
		Failed     int64
		Duplicates int64
	}
	err := db.Model(&model.ConversionRun{}).
		Select("COUNT(*) AS runs, COALESCE(SUM(succeeded), 0) AS succeeded, COALESCE(SUM(failed), 0) AS failed, COALESCE(SUM(duplicates), 0) AS duplicates").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	s.Runs, s.Succeeded, s.Failed, s.Duplicates = totals.Runs, totals.Succeeded, totals.Failed, totals.Duplicates

	var last model.ConversionRun
	if err := db.Order("created_at desc").Limit(1).Find(&last).Error; err != nil {
		return nil, err
	}
	if last.ID != 0 {
		s.LastRun = &last.CreatedAt
	}

	err = db.Model(&model.ConversionRun{}).
		Select("format, count(*) as runs").
		Group("format").
		Order("runs desc, format").
		Scan(&s.Formats).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&model.LinkFailure{}).
		Select("kind, count(*) as count").
		Group("kind").
		Order("count desc, kind").
		Limit(5).
		Scan(&s.TopKinds).Error
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Recent returns the newest n runs, newest first.
func (r *Recorder) Recent(ctx context.Context, n int) ([]model.ConversionRun, error) {
	var runs []model.ConversionRun
	err := r.db.WithContext(ctx).Order("created_at desc, id desc").Limit(n).Find(&runs).Error
	return runs, err
}

// Prune deletes all but the newest limit runs along with their failures
// and returns how many runs were removed.
func (r *Recorder) Prune(ctx context.Context, limit int) (int64, error) {
	if limit < 0 {
		limit = 0
	}
	db := r.db.WithContext(ctx)

	var count int64
	if err := db.Model(&model.ConversionRun{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count <= int64(limit) {
		return 0, nil
	}

	excess := int(count) - limit
	logger.Log.Infof("✂️  Pruning history: %d runs > limit %d. Removing %d...", count, limit, excess)

	var stale []string
	err := db.Model(&model.ConversionRun{}).
		Order("created_at asc, id asc").
		Limit(excess).
		Pluck("run_id", &stale).Error
	if err != nil {
		return 0, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id IN ?", stale).Delete(&model.LinkFailure{}).Error; err != nil {
			return err
		}
		return tx.Where("run_id IN ?", stale).Delete(&model.ConversionRun{}).Error
	})
	if err != nil {
		return 0, err
	}
	return int64(len(stale)), nil
}
