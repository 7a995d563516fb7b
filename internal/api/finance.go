package api

import (
	"net/http"                    // HTTP status codes
	"securegate/internal/service" // Inputs

	"github.com/gin-gonic/gin" // Gin web framework
)

// CreateTransactionHandler records an income or expense
func CreateTransactionHandler(txs TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.TransactionInput // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		tx, err := txs.Create(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Transaction created successfully", "data": tx})
	}
}

// FetchTransactionsHandler returns one page of the ledger, newest date first
func FetchTransactionsHandler(txs TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := queryInt(c, "page", 1)    // Default page number
		limit := queryInt(c, "limit", 10) // Default page size
		list, pagination, err := txs.List(c.Request.Context(), page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,       // Request succeeded
			"transactions": list,       // Page of transactions
			"pagination":   pagination, // Total, page, limit and total pages
		})
	}
}

// UpdateTransactionHandler applies a partial update to a ledger entry
func UpdateTransactionHandler(txs TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c) // Transaction id
		if !ok {
			return
		}
		var req service.TransactionPatch // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			fail(c, http.StatusBadRequest, "Invalid request")
			return
		}
		tx, err := txs.Update(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Transaction updated successfully", "data": tx})
	}
}

// DeleteTransactionHandler removes a ledger entry
func DeleteTransactionHandler(txs TransactionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c) // Transaction id
		if !ok {
			return
		}
		if err := txs.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Transaction deleted successfully"})
	}
}
