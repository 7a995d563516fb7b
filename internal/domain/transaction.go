package domain

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionType is either income or expense
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is a known transaction type
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction Model. The ledger is global and carries no owner.
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`                      // Primary key
	Type      TransactionType `gorm:"type:varchar(16);not null" json:"type"`     // income or expense
	Category  string          `gorm:"size:50;not null" json:"category"`          // Free-form category
	Amount    float64         `gorm:"type:decimal(10,2);not null" json:"amount"` // Amount with 2 fractional digits
	Date      datatypes.Date  `gorm:"index" json:"date"`                         // Calendar date of the transaction
	Notes     string          `gorm:"size:255;not null;default:''" json:"notes"` // Optional notes
	CreatedAt time.Time       `json:"createdAt"`                                 // Creation timestamp
	UpdatedAt time.Time       `json:"updatedAt"`                                 // Last update timestamp
}
