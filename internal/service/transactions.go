package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"securegate/internal/domain"
	"securegate/internal/store"

	"gorm.io/datatypes"
)

// TransactionInput is the ledger create payload
type TransactionInput struct {
	Type     domain.TransactionType `json:"type" validate:"required,oneof=income expense"`
	Category string                 `json:"category" validate:"required,max=50"`
	Amount   float64                `json:"amount" validate:"gt=0"`
	Date     string                 `json:"date" validate:"required,isodate"`
	Notes    string                 `json:"notes" validate:"max=255"`
}

// TransactionPatch is the ledger update payload. Nil fields are left unchanged.
type TransactionPatch struct {
	Type     *domain.TransactionType `json:"type" validate:"omitnil,oneof=income expense"`
	Category *string                 `json:"category" validate:"omitnil,min=1,max=50"`
	Amount   *float64                `json:"amount" validate:"omitnil,gt=0"`
	Date     *string                 `json:"date" validate:"omitnil,isodate"`
	Notes    *string                 `json:"notes" validate:"omitnil,max=255"`
}

// TransactionStore is the ledger persistence
type TransactionStore interface {
	Create(ctx context.Context, t *domain.Transaction) error
	FindByID(ctx context.Context, id uint) (*domain.Transaction, error)
	List(ctx context.Context, offset, limit int) ([]domain.Transaction, int64, error)
	Save(ctx context.Context, t *domain.Transaction) error
	Delete(ctx context.Context, id uint) error
}

// TransactionService manages the finance ledger
type TransactionService struct {
	txs TransactionStore
}

// NewTransactionService creates the ledger service
func NewTransactionService(txs TransactionStore) *TransactionService {
	return &TransactionService{txs: txs}
}

func parseDate(s string) (datatypes.Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return datatypes.Date{}, err
	}
	return datatypes.Date(t), nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Create records a ledger entry
func (s *TransactionService) Create(ctx context.Context, in TransactionInput) (*domain.Transaction, error) {
	trim(&in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	date, _ := parseDate(in.Date)
	t := &domain.Transaction{
		Type:     in.Type,
		Category: in.Category,
		Amount:   roundCents(in.Amount),
		Date:     date,
		Notes:    in.Notes,
	}
	if t.Amount <= 0 {
		return nil, domain.NewValidation("amount must be at least 0.01")
	}
	if err := s.txs.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

// List returns one page of the ledger, newest date first
func (s *TransactionService) List(ctx context.Context, page, limit int) ([]domain.Transaction, Page, error) {
	page, limit, offset := normalizePage(page, limit, 100)
	txs, total, err := s.txs.List(ctx, offset, limit)
	if err != nil {
		return nil, Page{}, fmt.Errorf("list transactions: %w", err)
	}
	return txs, newPage(total, page, limit), nil
}

// Update applies a partial change to a ledger entry
func (s *TransactionService) Update(ctx context.Context, id uint, in TransactionPatch) (*domain.Transaction, error) {
	trim(&in)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	t, err := s.txs.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.NewNotFound("Transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}

	if in.Type != nil {
		t.Type = *in.Type
	}
	if in.Category != nil {
		t.Category = *in.Category
	}
	if in.Amount != nil {
		t.Amount = roundCents(*in.Amount)
		if t.Amount <= 0 {
			return nil, domain.NewValidation("amount must be at least 0.01")
		}
	}
	if in.Date != nil {
		t.Date, _ = parseDate(*in.Date)
	}
	if in.Notes != nil {
		t.Notes = *in.Notes
	}
	if err := s.txs.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	return t, nil
}

// Delete removes a ledger entry
func (s *TransactionService) Delete(ctx context.Context, id uint) error {
	err := s.txs.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewNotFound("Transaction not found")
	}
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}
