// controllers/transaction_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"Gin_postgres_redis_storage_tracker/app"
	"Gin_postgres_redis_storage_tracker/db"

	"github.com/gin-gonic/gin"
)

type TransactionController struct{ *Srv }

func NewTransactionController(s *Srv) *TransactionController {
	return &TransactionController{Srv: s}
}

// GET /api/transactions?itemId=&userId=&kind=&page=&size=
// 账本只读：按 id 倒序分页
func (tc *TransactionController) ListTransactions(c *gin.Context) {
	q := db.TransactionsQuery{
		ItemID: c.Query("itemId"),
		UserID: c.Query("userId"),
		Kind:   c.Query("kind"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := tc.Repo.ListTransactions(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"total": res.Total, "transactions": res.Transactions})
}
