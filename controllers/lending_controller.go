// controllers/lending_controller.go
package controllers

import (
	"errors"
	"net/http"

	"Gin_postgres_redis_storage_tracker/app"
	"Gin_postgres_redis_storage_tracker/lending"

	"github.com/gin-gonic/gin"
)

type LendingController struct{ *Srv }

func NewLendingController(s *Srv) *LendingController { return &LendingController{Srv: s} }

// POST /api/items/:id/loan — 借出给当前用户
func (lc *LendingController) Loan(c *gin.Context) {
	itemID := c.Param("id")
	if itemID == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing item id"})
		return
	}
	uid, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}

	res, err := lc.Engine.RequestLoan(c.Request.Context(), itemID, uid)
	if err != nil {
		lendingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// POST /api/items/:id/return — 当前借用人归还
func (lc *LendingController) Return(c *gin.Context) {
	itemID := c.Param("id")
	if itemID == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing item id"})
		return
	}
	uid, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}

	res, err := lc.Engine.RequestReturn(c.Request.Context(), itemID, uid)
	if err != nil {
		lendingError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// 引擎的业务拒绝都是有类型的；只有存储故障算 5xx
func lendingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lending.ErrItemNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": "item not found"})
	case errors.Is(err, lending.ErrItemNotAvailable):
		c.JSON(http.StatusConflict, app.H{"error": "item not available"})
	case errors.Is(err, lending.ErrItemNotLoaned):
		c.JSON(http.StatusConflict, app.H{"error": "item not loaned"})
	case errors.Is(err, lending.ErrNotAuthorizedToReturn):
		c.JSON(http.StatusForbidden, app.H{"error": "only the current borrower can return this item"})
	case errors.Is(err, lending.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, app.H{"error": "storage unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
	}
}
