package store

import (
	"errors"

	"gorm.io/gorm"
)

type SharedFileStore struct {
	DB *gorm.DB
}

func NewSharedFileStore(db *gorm.DB) *SharedFileStore {
	return &SharedFileStore{DB: db}
}

func (s *SharedFileStore) Create(file *SharedFile) error {
	return s.DB.Create(file).Error
}

func (s *SharedFileStore) GetByFileID(fileID string) (*SharedFile, error) {
	var file SharedFile
	err := s.DB.First(&file, "file_id = ?", fileID).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (s *SharedFileStore) List() ([]SharedFile, error) {
	var files []SharedFile
	err := s.DB.Order("shared_at desc").Find(&files).Error
	return files, err
}

func (s *SharedFileStore) Delete(fileID string) error {
	return s.DB.Delete(&SharedFile{}, "file_id = ?", fileID).Error
}

// Exists reports whether a file id is already tracked.
func (s *SharedFileStore) Exists(fileID string) (bool, error) {
	_, err := s.GetByFileID(fileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
