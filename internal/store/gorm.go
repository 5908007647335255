package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type MatchResult struct {
	ID         uint `gorm:"primaryKey"`
	Winner     int  `gorm:"not null"`
	Players    int  `gorm:"not null"`
	Moves      int
	StartedAt  time.Time
	FinishedAt time.Time `gorm:"index"`
	CreatedAt  time.Time
}

func (MatchResult) TableName() string { return "match_results" }

func fromResult(r Result) MatchResult {
	return MatchResult{
		Winner:     r.Winner,
		Players:    r.Players,
		Moves:      r.Moves,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func (m MatchResult) toResult() Result {
	return Result{
		Winner:     m.Winner,
		Players:    m.Players,
		Moves:      m.Moves,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}

// GormRecorder stores results in the match_results table.
type GormRecorder struct {
	db *gorm.DB
}

// Open connects to postgres at dsn and migrates the schema.
func Open(dsn string) (*GormRecorder, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database failed")
	}
	return NewGormRecorder(db)
}

func NewGormRecorder(db *gorm.DB) (*GormRecorder, error) {
	if err := db.AutoMigrate(&MatchResult{}); err != nil {
		return nil, errors.Wrap(err, "migrate match_results failed")
	}
	return &GormRecorder{db: db}, nil
}

func (g *GormRecorder) Record(ctx context.Context, r Result) error {
	if err := r.Validate(); err != nil {
		return err
	}
	row := fromResult(r)
	return errors.Wrap(g.db.WithContext(ctx).Create(&row).Error, "insert match result failed")
}

func (g *GormRecorder) Recent(ctx context.Context, limit int) ([]Result, error) {
	var rows []MatchResult
	err := g.db.WithContext(ctx).Order("finished_at desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query match results failed")
	}
	out := make([]Result, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toResult())
	}
	return out, nil
}

func (g *GormRecorder) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return errors.Wrap(err, "get sql handle failed")
	}
	return sqlDB.Close()
}
