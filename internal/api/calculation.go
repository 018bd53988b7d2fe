package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"calculator_app/internal/calc"       // Arithmetic evaluation
	"calculator_app/internal/domain"     // Importing domain models
	"calculator_app/internal/middleware" // Current user and metrics
	"calculator_app/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/google/uuid"       // Calculation IDs
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// CalculationForm is the body of a create request
type CalculationForm struct {
	Type   string        `json:"type" binding:"required,calctype"` // Operation name or alias
	Inputs calc.Operands `json:"inputs" binding:"required,min=2"`  // At least two operands
}

// CalculationUpdate is the body of an update request; absent fields are kept
type CalculationUpdate struct {
	Type   *string       `json:"type" binding:"omitempty,calctype"` // New operation
	Inputs calc.Operands `json:"inputs"`                            // New operands
}

// calculationPage is what gets cached for one listing request
type calculationPage struct {
	Items []domain.Calculation `json:"items"` // Records on this page
	Total int64                `json:"total"` // Records matching the filter
}

// CalculationHandlers groups the BREAD endpoints for calculation records
type CalculationHandlers struct {
	DB       *gorm.DB      // Database handle
	Redis    *redis.Client // Optional listing cache
	CacheTTL time.Duration // Lifetime of cached listings
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return user.ID, true
}

func parseCalcID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid calculation id format")
		return uuid.Nil, false
	}
	return id, true
}

// invalidate drops every cached listing of a user
func (h *CalculationHandlers) invalidate(c *gin.Context, userID uuid.UUID) {
	if err := utils.DeleteCachePrefix(c.Request.Context(), h.Redis, utils.CalculationsCachePrefix(userID.String())); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Failed to invalidate calculation cache")
	}
}

// Create evaluates and stores a calculation for the authenticated user
func (h *CalculationHandlers) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req CalculationForm // Bind JSON request to struct
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	calculation, err := domain.NewCalculation(userID, req.Type, req.Inputs)
	if err != nil {
		t, _ := calc.ParseType(req.Type) // Validated by binding, keeps labels canonical
		middleware.CalculationsTotal.WithLabelValues(string(t), "rejected").Inc()
		if !respondCalcError(c, err) {
			respondInternal(c, "Failed to evaluate calculation", err, nil)
		}
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(calculation).Error; err != nil {
		respondInternal(c, "Failed to save calculation", err, logrus.Fields{"user_id": userID})
		return
	}
	middleware.CalculationsTotal.WithLabelValues(calculation.Type, "ok").Inc()
	logrus.WithFields(logrus.Fields{
		"user_id":        userID,                          // Owner
		"calculation_id": calculation.ID,                  // New record
		"expression":     calculation.Expression(),        // What was computed
		"result":         calculation.Result,              // Outcome
		"timestamp":      time.Now().Format(time.RFC3339), // Current timestamp
	}).Info("Calculation created")
	h.invalidate(c, userID)
	c.JSON(http.StatusCreated, calculation)
}

// List returns the authenticated user's calculations, newest first. Pagination
// applies only when page or page_size is given.
func (h *CalculationHandlers) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := 0, 0 // Zero means unpaginated
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
	}
	if page > 0 && pageSize == 0 {
		pageSize = 20 // Default page size
	} else if pageSize > 0 && page == 0 {
		page = 1 // Default page number
	}
	var typeFilter string
	if t := c.Query("type"); t != "" {
		parsed, err := calc.ParseType(t)
		if err != nil {
			respondCalcError(c, err)
			return
		}
		typeFilter = string(parsed)
	}

	ctx := c.Request.Context()
	cacheKey := utils.CalculationsCachePrefix(userID.String()) +
		"type=" + typeFilter + ":page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
	var result calculationPage
	found, err := utils.GetCache(ctx, h.Redis, cacheKey, &result) // Try to get from cache
	if err != nil {
		logrus.WithError(err).Warn("Calculation cache read failed")
	}
	if err == nil && found {
		c.Header("X-Cache", "HIT")
		c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
		c.JSON(http.StatusOK, result.Items)
		return
	}

	query := h.DB.WithContext(ctx).Model(&domain.Calculation{}).Where("user_id = ?", userID)
	if typeFilter != "" {
		query = query.Where("type = ?", typeFilter)
	}
	if err := query.Count(&result.Total).Error; err != nil {
		respondInternal(c, "Failed to count calculations", err, logrus.Fields{"user_id": userID})
		return
	}
	query = query.Order("created_at desc")
	if pageSize > 0 {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}
	result.Items = []domain.Calculation{}
	if err := query.Find(&result.Items).Error; err != nil {
		respondInternal(c, "Failed to fetch calculations", err, logrus.Fields{"user_id": userID})
		return
	}
	_ = utils.SetCache(ctx, h.Redis, cacheKey, result, h.CacheTTL) // Cache the page
	c.Header("X-Cache", "MISS")
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.JSON(http.StatusOK, result.Items)
}

// findOwned loads a calculation only if it belongs to userID
func findOwned(tx *gorm.DB, id, userID uuid.UUID) (*domain.Calculation, error) {
	var calculation domain.Calculation
	err := tx.Where("id = ? AND user_id = ?", id, userID).First(&calculation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &calculation, nil
}

// Get returns one calculation of the authenticated user
func (h *CalculationHandlers) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseCalcID(c)
	if !ok {
		return
	}
	calculation, err := findOwned(h.DB.WithContext(c.Request.Context()), id, userID)
	if errors.Is(err, ErrNotFound) {
		respondError(c, http.StatusNotFound, "Calculation not found")
		return
	} else if err != nil {
		respondInternal(c, "Failed to fetch calculation", err, logrus.Fields{"calculation_id": id})
		return
	}
	c.JSON(http.StatusOK, calculation)
}

// Update changes the operands and/or operation of a calculation and recomputes its result
func (h *CalculationHandlers) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseCalcID(c)
	if !ok {
		return
	}
	var req CalculationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	var calculation *domain.Calculation
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		calculation, err = findOwned(tx, id, userID)
		if err != nil {
			return err
		}
		if req.Type != nil {
			t, err := calc.ParseType(*req.Type)
			if err != nil {
				return err
			}
			calculation.Type = string(t)
		}
		if req.Inputs != nil {
			calculation.Inputs = []float64(req.Inputs)
		}
		if err := calculation.Recompute(); err != nil {
			return err
		}
		return tx.Save(calculation).Error
	})
	if errors.Is(err, ErrNotFound) {
		respondError(c, http.StatusNotFound, "Calculation not found")
		return
	} else if err != nil {
		if !respondCalcError(c, err) {
			respondInternal(c, "Failed to update calculation", err, logrus.Fields{"calculation_id": id})
		}
		return
	}
	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"calculation_id": id,
		"expression":     calculation.Expression(),
		"result":         calculation.Result,
	}).Info("Calculation updated")
	h.invalidate(c, userID)
	c.JSON(http.StatusOK, calculation)
}

// Delete removes a calculation of the authenticated user
func (h *CalculationHandlers) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := parseCalcID(c)
	if !ok {
		return
	}
	res := h.DB.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Calculation{})
	if res.Error != nil {
		respondInternal(c, "Failed to delete calculation", res.Error, logrus.Fields{"calculation_id": id})
		return
	}
	if res.RowsAffected == 0 {
		respondError(c, http.StatusNotFound, "Calculation not found")
		return
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "calculation_id": id}).Info("Calculation deleted")
	h.invalidate(c, userID)
	c.Status(http.StatusNoContent)
}
