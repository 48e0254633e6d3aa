// controllers/item_controller.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"Gin_postgres_redis_storage_tracker/app"
	"Gin_postgres_redis_storage_tracker/db"
	"Gin_postgres_redis_storage_tracker/lending"
	"Gin_postgres_redis_storage_tracker/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ItemController struct{ *Srv }

func NewItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

// POST /api/items — 登记一件自己的物品
func (ic *ItemController) CreateItem(c *gin.Context) {
	uid, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}

	var in struct {
		Name            string `json:"name" binding:"required"`
		Description     string `json:"description"`
		Quantity        int    `json:"quantity"`
		StorageLocation string `json:"storageLocation"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	it := &models.Item{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Description:     in.Description,
		Quantity:        in.Quantity,
		StorageLocation: in.StorageLocation,
		OwnerID:         uid,
		IsAvailable:     true,
	}
	if err := ic.Repo.CreateItem(c.Request.Context(), it); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, it)
}

// GET /api/items/:id
func (ic *ItemController) GetItem(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing item id"})
		return
	}
	it, err := ic.Repo.FindItemByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, lending.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, app.H{"error": "item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, it)
}

// GET /api/items?q=&status=&page=&size= — 列表（含当前借用人）
func (ic *ItemController) ListItems(c *gin.Context) {
	q := db.ItemsQuery{
		Q:       c.Query("q"),
		Status:  c.Query("status"), // "", "available", "loaned"
		OwnerID: c.Query("ownerId"),
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := ic.Repo.ListItems(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"total": res.Total, "items": res.Items})
}

// PUT /api/items/:id — 仅物主；走同一把物品锁，避免与借还竞态
func (ic *ItemController) UpdateItem(c *gin.Context) {
	uid, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	id := c.Param("id")

	var in struct {
		Name            string `json:"name" binding:"required"`
		Description     string `json:"description"`
		Quantity        int    `json:"quantity"`
		StorageLocation string `json:"storageLocation"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	it, err := ic.Repo.UpdateItemAttrs(c.Request.Context(), id, uid, db.ItemAttrs{
		Name:            in.Name,
		Description:     in.Description,
		Quantity:        in.Quantity,
		StorageLocation: in.StorageLocation,
	})
	if err != nil {
		switch {
		case errors.Is(err, lending.ErrItemNotFound):
			c.JSON(http.StatusNotFound, app.H{"error": "item not found"})
		case errors.Is(err, db.ErrNotOwner):
			c.JSON(http.StatusForbidden, app.H{"error": "not the item owner"})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, it)
}

// DELETE /api/items/:id — 仅物主；账本历史保留（item_id 置空）
func (ic *ItemController) DeleteItem(c *gin.Context) {
	uid, ok := actorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	id := c.Param("id")

	if err := ic.Repo.DeleteItem(c.Request.Context(), id, uid); err != nil {
		switch {
		case errors.Is(err, lending.ErrItemNotFound):
			c.JSON(http.StatusNotFound, app.H{"error": "item not found"})
		case errors.Is(err, db.ErrNotOwner):
			c.JSON(http.StatusForbidden, app.H{"error": "not the item owner"})
		default:
			c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
