// Package sqlite provides the embedded durable RecordStore backed by a
// local sqlite database via gorm. It is the authoritative backend: reads
// prefer it, writes target it first, and the volatile fallback only takes
// over when opening the database fails.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/parcelops/shipledger/internal/domain"
	"github.com/parcelops/shipledger/internal/ports"
)

// record is the gorm row for a shipment order. Extra is stored as a JSON
// text column.
//
// The tracking number index is deliberately non-unique: uniqueness is
// enforced by merge-on-write, and the integrity verifier must be able to
// observe duplicate records written by external paths that bypass Put.
type record struct {
	ID             string `gorm:"column:id;primaryKey;type:varchar(64)"`
	TrackingNumber string `gorm:"column:tracking_number;type:varchar(128);not null;index:idx_tracking_number"`

	Status   string `gorm:"column:status;type:varchar(16);not null"`
	SendDate string `gorm:"column:send_date;type:varchar(10);not null"`
	Region   string `gorm:"column:region;type:varchar(64)"`

	COD             float64 `gorm:"column:cod"`
	ActualCOD       float64 `gorm:"column:actual_cod"`
	PartialDelivery float64 `gorm:"column:partial_delivery"`
	ShippingFee     float64 `gorm:"column:shipping_fee"`

	Source        string `gorm:"column:source;type:varchar(16)"`
	WarningStatus string `gorm:"column:warning_status;type:varchar(16)"`
	WarningNote   string `gorm:"column:warning_note;type:text"`

	Extra string `gorm:"column:extra;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName sets the sqlite table name.
func (record) TableName() string {
	return "orders"
}

// Store is the sqlite-backed RecordStore.
type Store struct {
	path   string
	logger ports.Logger
	now    func() time.Time

	mu      sync.Mutex
	db      *gorm.DB
	openErr error
	open    bool
}

var _ ports.RecordStore = (*Store)(nil)

// NewStore creates a store for the sqlite database at path. The database
// is not touched until Open.
func NewStore(path string, logger ports.Logger) *Store {
	return &Store{path: path, logger: logger, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (s *Store) SetNow(now func() time.Time) { s.now = now }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Open connects to the database and migrates the schema. An open failure is
// reported once and sticks: the store stays unavailable for the session and
// every later call fails fast instead of retrying.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return nil
	}
	if s.openErr != nil {
		return s.openErr
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			s.openErr = fmt.Errorf("state dir: %w", err)
			s.logger.Error("record store unavailable", ports.String("path", s.path), ports.Err(s.openErr))
			return s.openErr
		}
	}

	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{})
	if err != nil {
		s.openErr = fmt.Errorf("open sqlite: %w", err)
		s.logger.Error("record store unavailable", ports.String("path", s.path), ports.Err(s.openErr))
		return s.openErr
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		s.openErr = fmt.Errorf("migrate orders table: %w", err)
		s.logger.Error("record store unavailable", ports.String("path", s.path), ports.Err(s.openErr))
		return s.openErr
	}

	s.db = db
	s.open = true
	return nil
}

// Close releases the database handle. Safe on a store that never opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	s.open = false
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Available reports whether the store opened successfully and is not closed.
func (s *Store) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// handle returns the gorm handle or fails fast when the store is unusable.
func (s *Store) handle() (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, domain.ErrStoreUnavailable
	}
	return s.db, nil
}

// Put creates or merges a record under its tracking number. The lookup and
// write run in one transaction so a record is never partially written.
func (s *Store) Put(ctx context.Context, o domain.Order) (ports.PutOutcome, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}

	outcome := ports.PutCreated
	now := s.now()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []record
		if err := tx.Where("tracking_number = ?", o.TrackingNumber).
			Order("updated_at DESC").Limit(1).Find(&existing).Error; err != nil {
			return err
		}

		if len(existing) == 0 {
			rec, err := toRecord(domain.Normalize(o, now))
			if err != nil {
				return err
			}
			return tx.Create(&rec).Error
		}

		prev, err := fromRecord(existing[0])
		if err != nil {
			return err
		}
		merged := domain.Merge(prev, o, now)
		rec, err := toRecord(merged)
		if err != nil {
			return err
		}
		outcome = ports.PutUpdated
		return tx.Save(&rec).Error
	})
	if err != nil {
		return 0, fmt.Errorf("put order: %w", err)
	}
	return outcome, nil
}

// GetAll returns every live record, including any duplicates an external
// write path may have introduced.
func (s *Store) GetAll(ctx context.Context) ([]domain.Order, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var recs []record
	if err := db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	out := make([]domain.Order, 0, len(recs))
	for _, rec := range recs {
		o, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// GetByTrackingNumber returns the live record for the business key. When
// duplicates exist the copy with the latest UpdatedAt wins.
func (s *Store) GetByTrackingNumber(ctx context.Context, key string) (domain.Order, bool, error) {
	db, err := s.handle()
	if err != nil {
		return domain.Order{}, false, err
	}

	var recs []record
	if err := db.WithContext(ctx).Where("tracking_number = ?", key).
		Order("updated_at DESC").Limit(1).Find(&recs).Error; err != nil {
		return domain.Order{}, false, fmt.Errorf("load order: %w", err)
	}
	if len(recs) == 0 {
		return domain.Order{}, false, nil
	}
	o, err := fromRecord(recs[0])
	if err != nil {
		return domain.Order{}, false, err
	}
	return o, true, nil
}

// Delete removes one record by primary key.
func (s *Store) Delete(ctx context.Context, id string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	res := db.WithContext(ctx).Where("id = ?", id).Delete(&record{})
	if res.Error != nil {
		return fmt.Errorf("delete order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec("DELETE FROM orders").Error; err != nil {
		return fmt.Errorf("clear orders: %w", err)
	}
	return nil
}

// Exists partitions keys into present and absent without mutating state.
func (s *Store) Exists(ctx context.Context, keys []string) (present, absent []string, err error) {
	db, err := s.handle()
	if err != nil {
		return nil, nil, err
	}

	unique := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}
	if len(unique) == 0 {
		return nil, nil, nil
	}

	var found []string
	if err := db.WithContext(ctx).Model(&record{}).Distinct().
		Where("tracking_number IN ?", unique).
		Pluck("tracking_number", &found).Error; err != nil {
		return nil, nil, fmt.Errorf("check keys: %w", err)
	}

	inStore := make(map[string]bool, len(found))
	for _, k := range found {
		inStore[k] = true
	}
	for _, k := range unique {
		if inStore[k] {
			present = append(present, k)
		} else {
			absent = append(absent, k)
		}
	}
	return present, absent, nil
}

// Count returns the number of live records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.WithContext(ctx).Model(&record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// EstimatedSize returns the database file size in bytes, or zero when the
// file cannot be measured (e.g. an in-memory database).
func (s *Store) EstimatedSize(ctx context.Context) (int64, error) {
	if _, err := s.handle(); err != nil {
		return 0, err
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, nil
	}
	return info.Size(), nil
}

// toRecord converts a domain order into its row form.
func toRecord(o domain.Order) (record, error) {
	var extra string
	if len(o.Extra) > 0 {
		b, err := json.Marshal(o.Extra)
		if err != nil {
			return record{}, fmt.Errorf("encode extra fields: %w", err)
		}
		extra = string(b)
	}
	return record{
		ID:              o.ID,
		TrackingNumber:  o.TrackingNumber,
		Status:          string(o.Status),
		SendDate:        o.SendDate,
		Region:          o.Region,
		COD:             o.COD,
		ActualCOD:       o.ActualCOD,
		PartialDelivery: o.PartialDelivery,
		ShippingFee:     o.ShippingFee,
		Source:          o.Source,
		WarningStatus:   string(o.WarningStatus),
		WarningNote:     o.WarningNote,
		Extra:           extra,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}, nil
}

// fromRecord converts a row back into a domain order.
func fromRecord(rec record) (domain.Order, error) {
	var extra map[string]string
	if rec.Extra != "" {
		if err := json.Unmarshal([]byte(rec.Extra), &extra); err != nil {
			return domain.Order{}, fmt.Errorf("decode extra fields: %w", err)
		}
	}
	return domain.Order{
		ID:              rec.ID,
		TrackingNumber:  rec.TrackingNumber,
		Status:          domain.Status(rec.Status),
		SendDate:        rec.SendDate,
		Region:          rec.Region,
		COD:             rec.COD,
		ActualCOD:       rec.ActualCOD,
		PartialDelivery: rec.PartialDelivery,
		ShippingFee:     rec.ShippingFee,
		Source:          rec.Source,
		WarningStatus:   domain.WarningStatus(rec.WarningStatus),
		WarningNote:     rec.WarningNote,
		Extra:           extra,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}, nil
}
