package store

import (
	"context"

	"securegate/internal/domain"

	"gorm.io/gorm"
)

// TransactionStore persists the finance ledger
type TransactionStore struct {
	db *gorm.DB
}

// NewTransactionStore creates a ledger store on db
func NewTransactionStore(db *gorm.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Create inserts a ledger entry
func (s *TransactionStore) Create(ctx context.Context, t *domain.Transaction) error {
	return s.db.WithContext(ctx).Create(t).Error
}

// FindByID loads one ledger entry
func (s *TransactionStore) FindByID(ctx context.Context, id uint) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// List returns one page ordered by date then id, newest first, and the total count
func (s *TransactionStore) List(ctx context.Context, offset, limit int) ([]domain.Transaction, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Transaction{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	txs := []domain.Transaction{}
	err := s.db.WithContext(ctx).
		Order("date DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// Save writes every column of an existing entry
func (s *TransactionStore) Save(ctx context.Context, t *domain.Transaction) error {
	return s.db.WithContext(ctx).Save(t).Error
}

// Delete removes a ledger entry
func (s *TransactionStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&domain.Transaction{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
