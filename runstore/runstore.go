// Archive of completed analysis runs, persisted with gorm (sqlite or postgres).
//
// Each archived run gets a human-readable name, and stores a summary row alongside the full JSON result.
package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluesky-social/starling/pipeline"

	petname "github.com/dustinkirkland/golang-petname"
	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("run not found")

// Run is the archived row for one analysis.
type Run struct {
	ID                 uint   `gorm:"primarykey"`
	CreatedAt          time.Time
	Name               string `gorm:"uniqueIndex"`
	DatasetFingerprint string `gorm:"index"`
	ConfigFingerprint  string
	Empty              bool
	Users              int
	Posts              int
	Edges              int
	Groups             int
	Clusters           int
	Warnings           int
	DurationMs         int64
	Result             []byte
}

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New migrates the schema and returns a Store.
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("migrating run archive: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With("component", "runstore"),
	}, nil
}

// Archive saves a result under a freshly generated name.
func (s *Store) Archive(ctx context.Context, res *pipeline.Result) (*Run, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	run := Run{
		DatasetFingerprint: res.Metadata.DatasetFingerprint,
		ConfigFingerprint:  res.Metadata.ConfigFingerprint,
		Empty:              res.Metadata.Empty,
		Users:              res.Metadata.Users,
		Posts:              res.Metadata.Posts,
		Edges:              res.Metadata.Edges,
		Groups:             len(res.Groups),
		Clusters:           len(res.Clusters),
		Warnings:           len(res.Metadata.Warnings),
		DurationMs:         res.Metadata.DurationMs,
		Result:             b,
	}

	// names are random, so retry a few times on the unlikely collision
	for attempt := 0; attempt < 5; attempt++ {
		run.ID = 0
		run.Name = petname.Generate(3, "-")
		err = s.db.WithContext(ctx).Create(&run).Error
		if err == nil {
			s.logger.Info("archived run", "name", run.Name, "groups", run.Groups, "clusters", run.Clusters)
			return &run, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("archiving run: %w", err)
		}
	}
	return nil, fmt.Errorf("archiving run: %w", err)
}

// List returns the most recent runs first, without their result bodies.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []Run
	err := s.db.WithContext(ctx).
		Omit("result").
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *Store) Get(ctx context.Context, name string) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Load decodes the full archived result of a run.
func (s *Store) Load(ctx context.Context, name string) (*pipeline.Result, error) {
	run, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	var res pipeline.Result
	if err := json.Unmarshal(run.Result, &res); err != nil {
		return nil, fmt.Errorf("decoding archived run %s: %w", name, err)
	}
	return &res, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	tx := s.db.WithContext(ctx).Where("name = ?", name).Delete(&Run{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, name)
	}
	return nil
}

// ForDataset lists archived runs over the same dataset snapshot, most recent first.
func (s *Store) ForDataset(ctx context.Context, fingerprint string) ([]Run, error) {
	var runs []Run
	err := s.db.WithContext(ctx).
		Omit("result").
		Where("dataset_fingerprint = ?", fingerprint).
		Order("created_at desc, id desc").
		Find(&runs).Error
	return runs, err
}
