package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"securegate/internal/db/dbtest"
	"securegate/internal/domain"
	"securegate/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransactionService(t *testing.T) *TransactionService {
	return NewTransactionService(store.NewTransactionStore(dbtest.Open(t)))
}

func TestTransactionCreate(t *testing.T) {
	svc := newTransactionService(t)
	tx, err := svc.Create(context.Background(), TransactionInput{
		Type: domain.TransactionExpense, Category: " food ", Amount: 12.346, Date: "2024-05-06", Notes: "lunch",
	})
	require.NoError(t, err)
	assert.Equal(t, "food", tx.Category)
	assert.Equal(t, 12.35, tx.Amount)
	assert.Equal(t, "2024-05-06", time.Time(tx.Date).Format(time.DateOnly))
}

func TestTransactionValidation(t *testing.T) {
	valid := TransactionInput{Type: domain.TransactionIncome, Category: "salary", Amount: 100, Date: "2024-01-31"}
	cases := map[string]func(*TransactionInput){
		"bad type":         func(in *TransactionInput) { in.Type = "transfer" },
		"missing category": func(in *TransactionInput) { in.Category = "" },
		"long category":    func(in *TransactionInput) { in.Category = strings.Repeat("x", 51) },
		"zero amount":      func(in *TransactionInput) { in.Amount = 0 },
		"negative amount":  func(in *TransactionInput) { in.Amount = -5 },
		"rounds to zero":   func(in *TransactionInput) { in.Amount = 0.001 },
		"bad date":         func(in *TransactionInput) { in.Date = "31/01/2024" },
		"impossible date":  func(in *TransactionInput) { in.Date = "2024-02-30" },
		"notes too long":   func(in *TransactionInput) { in.Notes = strings.Repeat("x", 256) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := newTransactionService(t).Create(context.Background(), in)
			requireKind(t, err, domain.KindValidation)
		})
	}
}

func TestTransactionListUpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTransactionService(t)
	for _, d := range []string{"2024-01-01", "2024-02-01", "2024-03-01"} {
		_, err := svc.Create(ctx, TransactionInput{Type: domain.TransactionIncome, Category: "c", Amount: 1, Date: d})
		require.NoError(t, err)
	}

	txs, page, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, Page{Total: 3, Page: 1, Limit: 10, TotalPages: 1}, page)
	require.Len(t, txs, 3)
	assert.Equal(t, "2024-03-01", time.Time(txs[0].Date).Format(time.DateOnly))

	updated, err := svc.Update(ctx, txs[0].ID, TransactionPatch{Amount: ptr(9.999), Notes: ptr("fixed")})
	require.NoError(t, err)
	assert.Equal(t, 10.0, updated.Amount)
	assert.Equal(t, "fixed", updated.Notes)
	assert.Equal(t, "c", updated.Category)

	_, err = svc.Update(ctx, txs[0].ID, TransactionPatch{Type: ptr(domain.TransactionType("gift"))})
	requireKind(t, err, domain.KindValidation)
	_, err = svc.Update(ctx, 999, TransactionPatch{Notes: ptr("x")})
	requireKind(t, err, domain.KindNotFound)

	require.NoError(t, svc.Delete(ctx, txs[0].ID))
	requireKind(t, svc.Delete(ctx, txs[0].ID), domain.KindNotFound)
}
