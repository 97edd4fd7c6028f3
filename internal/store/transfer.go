package store

import (
	"gorm.io/gorm"
)

const (
	TransferPending   = "pending"
	TransferActive    = "active"
	TransferCompleted = "completed"
	TransferFailed    = "failed"
)

type TransferStore struct {
	DB *gorm.DB
}

func NewTransferStore(db *gorm.DB) *TransferStore {
	return &TransferStore{DB: db}
}

func (s *TransferStore) Create(transfer *Transfer) error {
	return s.DB.Create(transfer).Error
}

func (s *TransferStore) Get(id uint) (*Transfer, error) {
	var transfer Transfer
	err := s.DB.First(&transfer, id).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (s *TransferStore) List() ([]Transfer, error) {
	var transfers []Transfer
	err := s.DB.Order("id desc").Find(&transfers).Error
	return transfers, err
}

func (s *TransferStore) UpdateProgress(id uint, received int64) error {
	return s.DB.Model(&Transfer{}).Where("id = ?", id).
		Update("received", received).Error
}

func (s *TransferStore) UpdateStatus(id uint, status string, finishedAt int64) error {
	updates := map[string]interface{}{"status": status}
	if finishedAt != 0 {
		updates["finished_at"] = finishedAt
	}
	return s.DB.Model(&Transfer{}).Where("id = ?", id).Updates(updates).Error
}

// Incomplete returns transfers that were interrupted and may resume.
func (s *TransferStore) Incomplete() ([]Transfer, error) {
	var transfers []Transfer
	err := s.DB.Where("status in ?", []string{TransferPending, TransferActive}).
		Find(&transfers).Error
	return transfers, err
}
