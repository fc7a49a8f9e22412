package ledger

import (
	"errors"

	"gorm.io/gorm"

	"github.com/nzci/enrolbridge/app/models"
)

// GormStore keeps the ledger in a sale_records table. The sale snapshot is
// insert-only; RecordOutcome only touches the outcome column.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Append(record models.SaleRecord) error {
	record.Outcome = models.SaleOutcomePending
	return s.db.Create(&record).Error
}

func (s *GormStore) RecordOutcome(saleID, outcome string) error {
	if saleID == "" {
		return errors.New("sale id is required")
	}
	return s.db.Model(&models.SaleRecord{}).
		Where("sale_id = ?", saleID).
		Update("outcome", outcome).Error
}

func (s *GormStore) ListPending() ([]models.SaleRecord, error) {
	var records []models.SaleRecord
	err := s.db.
		Where("outcome <> ?", models.SaleOutcomeEnrolled).
		Order("timestamp ASC").
		Find(&records).Error
	return records, err
}
