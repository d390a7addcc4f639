package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/semmidev/blobber/internal/domain"
)

const (
	DefaultRetentionDays        = 30
	DefaultMaxConcurrentDeletes = 16
)

var (
	ErrNoDateInName = errors.New("no date found in blob name")
	ErrInvalidDate  = errors.New("invalid calendar date")
)

// datePattern matches the first date-like token in a blob name: three
// numeric groups separated by '.', '-' or '/'.
var datePattern = regexp.MustCompile(`(\d{1,4})[./-](\d{1,2})[./-](\d{1,4})`)

type SweepOptions struct {
	RetentionDays        int
	MaxConcurrentDeletes int
	// SkipUndated retains blobs whose name has no date token instead of
	// failing the sweep.
	SkipUndated bool
}

type SweepResult struct {
	Scanned  int
	Retained int
	Skipped  int
	Deleted  []string
}

func (r SweepResult) String() string {
	return fmt.Sprintf("Deleted %d blob(s)", len(r.Deleted))
}

// Sweeper deletes blobs whose name carries a date at least RetentionDays
// calendar days old.
type Sweeper struct {
	store     domain.BlobStore
	container string
	logger    Logger
	opts      SweepOptions
	now       func() time.Time
	metrics   SweepMetrics
}

func NewSweeper(store domain.BlobStore, container string, logger Logger, opts SweepOptions) *Sweeper {
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = DefaultRetentionDays
	}
	if opts.MaxConcurrentDeletes <= 0 {
		opts.MaxConcurrentDeletes = DefaultMaxConcurrentDeletes
	}
	return &Sweeper{
		store:     store,
		container: container,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
		metrics:   nopMetrics{},
	}
}

func (s *Sweeper) SetMetrics(m SweepMetrics) {
	if m != nil {
		s.metrics = m
	}
}

// Execute runs one sweep. It has the signature the scheduler expects.
func (s *Sweeper) Execute(ctx context.Context) error {
	_, err := s.DeleteOldBlobs(ctx)
	return err
}

// DeleteOldBlobs lists the container and deletes every expired blob, at
// most MaxConcurrentDeletes at a time. Any failed delete fails the whole
// sweep; deletes that already succeeded are not undone. Metrics see the
// deletes that succeeded even when the sweep fails.
func (s *Sweeper) DeleteOldBlobs(ctx context.Context) (result SweepResult, err error) {
	var deleted atomic.Int64
	defer func() { s.metrics.ObserveSweep(result.Scanned, int(deleted.Load()), err) }()

	s.logger.Infof("Starting sweep of %s, retention: %d days", s.container, s.opts.RetentionDays)

	blobs, err := s.store.ListBlobs(ctx, s.container)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list blobs: %w", err)
	}

	now := s.now()
	var expired []string
	scan := SweepResult{Scanned: len(blobs)}

	for _, blob := range blobs {
		date, err := ExtractDate(blob.Name)
		switch {
		case errors.Is(err, ErrNoDateInName):
			if !s.opts.SkipUndated {
				return SweepResult{Scanned: len(blobs)}, fmt.Errorf("blob %q: %w", blob.Name, err)
			}
			s.logger.Warnf("Skipping %s: no date in name", blob.Name)
			scan.Skipped++
			continue
		case err != nil:
			s.logger.Warnf("Keeping %s: %v", blob.Name, err)
			scan.Retained++
			continue
		}

		if AgeInDays(date, now) >= s.opts.RetentionDays {
			expired = append(expired, blob.Name)
		} else {
			scan.Retained++
		}
	}

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrentDeletes)
	for _, name := range expired {
		g.Go(func() error {
			if err := s.store.DeleteBlob(ctx, s.container, name); err != nil {
				return fmt.Errorf("delete %s: %w", name, err)
			}
			deleted.Add(1)
			s.logger.Infof("Deleted expired blob %s", name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Errorf("Sweep of %s failed after %d deletion(s): %v", s.container, deleted.Load(), err)
		return SweepResult{Scanned: len(blobs)}, err
	}

	scan.Deleted = expired
	s.logger.Infof("Sweep of %s finished: %s, %d retained, %d skipped",
		s.container, scan, scan.Retained, scan.Skipped)
	return scan, nil
}

// ExtractDate parses the first date token in name. A first group of three
// or four digits reads as year-month-day, anything else as
// month-day-year. Two-digit years map 00-49 to 2000-2049 and 50-99 to
// 1950-1999.
func ExtractDate(name string) (time.Time, error) {
	m := datePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, ErrNoDateInName
	}

	yearStr, monthStr, dayStr := m[3], m[1], m[2]
	if len(m[1]) > 2 {
		yearStr, monthStr, dayStr = m[1], m[2], m[3]
	}

	year, _ := strconv.Atoi(yearStr)
	month, _ := strconv.Atoi(monthStr)
	day, _ := strconv.Atoi(dayStr)

	if len(yearStr) <= 2 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if month < 1 || month > 12 || t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidDate, m[0])
	}
	return t, nil
}

// AgeInDays returns the number of calendar days from date to the civil
// date of now, ignoring time of day. date is read as a UTC calendar date.
func AgeInDays(date, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return int((today.Unix() - day.Unix()) / 86400)
}
