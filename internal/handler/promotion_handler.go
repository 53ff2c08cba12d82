package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_promo/internal/models"
	"github.com/GTDGit/gtd_promo/internal/service"
	"github.com/GTDGit/gtd_promo/internal/utils"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// PromotionHandler handles promotion HTTP endpoints.
type PromotionHandler struct {
	promotionService *service.PromotionService
}

// NewPromotionHandler constructs a PromotionHandler.
func NewPromotionHandler(promotionService *service.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotionService: promotionService}
}

// ProductPromoRequest identifies a product and a promotion.
type ProductPromoRequest struct {
	ProductID int `json:"product_id" binding:"required"`
	PromoID   int `json:"promo_id" binding:"required"`
}

// CreatePromotion handles POST /v1/promos
func (h *PromotionHandler) CreatePromotion(c *gin.Context) {
	var req service.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	promo, err := h.promotionService.CreatePromotion(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err, "Failed to create promotion")
		return
	}

	utils.Success(c, 201, "Promotion created successfully", promo)
}

// ListPromotions handles GET /v1/promos
func (h *PromotionHandler) ListPromotions(c *gin.Context) {
	page, ok := positiveQuery(c, "page", defaultPage)
	if !ok {
		utils.Error(c, 400, "INVALID_REQUEST", "page must be a positive integer")
		return
	}
	limit, ok := positiveQuery(c, "limit", defaultLimit)
	if !ok {
		utils.Error(c, 400, "INVALID_REQUEST", "limit must be a positive integer")
		return
	}

	result, err := h.promotionService.ListPromotions(c.Request.Context(), page, limit)
	if err != nil {
		h.fail(c, err, "Failed to retrieve promotions")
		return
	}

	utils.SuccessWithPagination(c, 200, "Promotions retrieved", result.Data, result.Meta)
}

// GetPromotion handles GET /v1/promos/:id
func (h *PromotionHandler) GetPromotion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	promo, err := h.promotionService.GetPromotion(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to retrieve promotion")
		return
	}

	utils.Success(c, 200, "Promotion retrieved", promo)
}

// UpdatePromotion handles PATCH /v1/promos/:id
func (h *PromotionHandler) UpdatePromotion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var patch models.PromotionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	promo, err := h.promotionService.UpdatePromotion(c.Request.Context(), id, &patch)
	if err != nil {
		h.fail(c, err, "Failed to update promotion")
		return
	}

	utils.Success(c, 200, "Promotion updated successfully", promo)
}

// DeletePromotion handles DELETE /v1/promos/:id
func (h *PromotionHandler) DeletePromotion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	promo, err := h.promotionService.DeletePromotion(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to delete promotion")
		return
	}

	utils.Success(c, 200, "Promotion deleted successfully", promo)
}

// ApplyPromo handles POST /v1/promos/apply
func (h *PromotionHandler) ApplyPromo(c *gin.Context) {
	var req ProductPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "product_id and promo_id are required")
		return
	}

	result, err := h.promotionService.ApplyPromoToProduct(c.Request.Context(), req.ProductID, req.PromoID)
	if err != nil {
		h.fail(c, err, "Failed to apply promotion")
		return
	}

	utils.Success(c, 200, "Promo applied successfully", result)
}

// ApplyPromoGlobally handles POST /v1/promos/:id/apply-global
// Responds 207 when some products could not be updated.
func (h *PromotionHandler) ApplyPromoGlobally(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.promotionService.ApplyPromoGlobally(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to apply promotion")
		return
	}

	code := 200
	if result.Partial() {
		code = http.StatusMultiStatus
	}
	utils.Success(c, code, result.Message, result)
}

// UnapplyPromo handles POST /v1/promos/unapply
func (h *PromotionHandler) UnapplyPromo(c *gin.Context) {
	var req ProductPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "product_id and promo_id are required")
		return
	}

	result, err := h.promotionService.UnapplyPromoFromProduct(c.Request.Context(), req.ProductID, req.PromoID)
	if err != nil {
		h.fail(c, err, "Failed to remove promotion")
		return
	}

	utils.Success(c, 200, "Promo removed successfully", result)
}

// GetProductPromotions handles GET /v1/products/:id/promos
func (h *PromotionHandler) GetProductPromotions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.promotionService.GetProductPromotions(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to retrieve product promotions")
		return
	}

	utils.Success(c, 200, "Product promotions retrieved", result)
}

// fail maps service errors to responses. Unknown errors are logged and hidden.
func (h *PromotionHandler) fail(c *gin.Context, err error, internalMsg string) {
	switch {
	case errors.Is(err, utils.ErrValidation):
		utils.Error(c, 400, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, utils.ErrNotFound):
		utils.Error(c, 404, "NOT_FOUND", err.Error())
	case errors.Is(err, utils.ErrConflict):
		utils.Error(c, 409, "CONFLICT", err.Error())
	default:
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Str("path", c.FullPath()).Msg(internalMsg)
		utils.Error(c, 500, "INTERNAL_ERROR", internalMsg)
	}
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		utils.Error(c, 400, "INVALID_ID", "Invalid ID")
		return 0, false
	}
	return id, true
}

func positiveQuery(c *gin.Context, key string, def int) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
