package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stocksync/internal/apperrors"
	"stocksync/internal/logger"
	"stocksync/internal/models"
	"stocksync/internal/repository"
)

type ProductStore interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, int64, error)
}

// ProductHandler serves the local catalog read-only. Writes happen through
// imports.
type ProductHandler struct {
	products ProductStore
	logger   *logger.Logger
}

func NewProductHandler(products ProductStore, logger *logger.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger,
	}
}

func (h *ProductHandler) List(c *gin.Context) {
	// Pagination
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := repository.ProductFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	switch c.Query("linked") {
	case "":
	case "true":
		linked := true
		filter.Linked = &linked
	case "false":
		linked := false
		filter.Linked = &linked
	default:
		c.Error(apperrors.BadRequest("linked must be true or false", nil))
		return
	}

	products, total, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": products,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.products.FindByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.Error(apperrors.NotFound("Product not found", err))
		return
	}
	if err != nil {
		c.Error(apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}
