package history

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"beanchain/native/season"
)

// ErrNotFound is returned when a season has no stored report.
var ErrNotFound = errors.New("history: season not found")

// Store persists season reports for the API and exports.
type Store struct {
	db *gorm.DB
}

// Open connects to driver ("sqlite" or "postgres") and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("history: dsn required")
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(trimmed)
	case "postgres", "postgresql":
		dialector = postgres.Open(trimmed)
	default:
		return nil, fmt.Errorf("history: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already migrated connection.
func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveReport stores r. Saving the same season twice keeps the first row.
func (s *Store) SaveReport(ctx context.Context, r *season.Report) error {
	if r == nil {
		return fmt.Errorf("history: nil report")
	}
	record := fromReport(r)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit("Shipments").Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "season"}}, DoNothing: true}).Create(record)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 || len(record.Shipments) == 0 {
			return nil
		}
		return tx.Create(&record.Shipments).Error
	})
}

// Get loads the report of one season.
func (s *Store) Get(ctx context.Context, number uint64) (*SeasonRecord, error) {
	var record SeasonRecord
	err := s.db.WithContext(ctx).Preload("Shipments").Where("season = ?", number).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Latest returns up to limit reports, newest first.
func (s *Store) Latest(ctx context.Context, limit int) ([]SeasonRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var records []SeasonRecord
	err := s.db.WithContext(ctx).Preload("Shipments").Order("season desc").Limit(limit).Find(&records).Error
	return records, err
}

// Range returns the reports of seasons in [from, to] in ascending order. A
// zero to means no upper bound.
func (s *Store) Range(ctx context.Context, from, to uint64) ([]SeasonRecord, error) {
	query := s.db.WithContext(ctx).Preload("Shipments").Where("season >= ?", from)
	if to > 0 {
		query = query.Where("season <= ?", to)
	}
	var records []SeasonRecord
	err := query.Order("season asc").Find(&records).Error
	return records, err
}

func fromReport(r *season.Report) *SeasonRecord {
	id := uuid.New()
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	record := &SeasonRecord{
		ID:          id,
		Season:      r.Season,
		Timestamp:   ts.UTC(),
		Caller:      r.Caller.String(),
		CaseID:      r.Evaluation.CaseID,
		DeltaB:      amount(r.Evaluation.DeltaB),
		Price:       amount(r.Evaluation.Price),
		PodRate:     amount(r.Evaluation.PodRate),
		L2SR:        amount(r.Evaluation.L2SR),
		Minted:      amount(r.Minted),
		Soil:        amount(r.Soil),
		Temperature: amount(r.Temperature),
		Raining:     r.Raining,
		Incentive:   amount(r.Incentive),
		SecondsLate: r.SecondsLate,
		StalkTotal:  amount(r.StalkTotal),
		RootsTotal:  amount(r.RootsTotal),
		EarnedBeans: amount(r.EarnedBeans),
		Digest:      r.Digest,
	}
	if r.Flood != nil {
		record.FloodBeans = amount(r.Flood.Beans)
		record.FloodAmount = amount(r.Flood.Amount)
	}
	for _, shipment := range r.Shipments {
		record.Shipments = append(record.Shipments, ShipmentRecord{
			ID:             uuid.New(),
			SeasonRecordID: id,
			Season:         r.Season,
			Route:          shipment.Route,
			Offered:        amount(shipment.Offered),
			Accepted:       amount(shipment.Accepted),
		})
	}
	return record
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
