package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"cofrinho/internal/ledger"
	"cofrinho/internal/middleware"
	"cofrinho/internal/models"
	"cofrinho/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecurringHandler serves recurring transaction templates.
type RecurringHandler struct {
	DB     *gorm.DB
	Ledger *ledger.Service
}

func NewRecurringHandler(db *gorm.DB, svc *ledger.Service) *RecurringHandler {
	return &RecurringHandler{DB: db, Ledger: svc}
}

type recurringReq struct {
	Type        string `json:"type" binding:"required,oneof=income expense"`
	Source      string `json:"source" binding:"required,oneof=physical pix"`
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description" binding:"max=255"`
	Frequency   string `json:"frequency" binding:"required,oneof=daily weekly monthly"`
	DayOfMonth  *int   `json:"day_of_month"`
	DayOfWeek   *int   `json:"day_of_week"`
	IsActive    *bool  `json:"is_active"`
}

type recurringResp struct {
	ID              uint       `json:"id"`
	Type            string     `json:"type"`
	Source          string     `json:"source"`
	Amount          string     `json:"amount"`
	Description     string     `json:"description,omitempty"`
	Frequency       string     `json:"frequency"`
	DayOfMonth      *int       `json:"day_of_month,omitempty"`
	DayOfWeek       *int       `json:"day_of_week,omitempty"`
	IsActive        bool       `json:"is_active"`
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toRecurringResp(r *models.RecurringTransaction) recurringResp {
	return recurringResp{
		ID:              r.ID,
		Type:            r.Type,
		Source:          r.Source,
		Amount:          r.Amount.StringFixed(2),
		Description:     r.Description,
		Frequency:       r.Frequency,
		DayOfMonth:      r.DayOfMonth,
		DayOfWeek:       r.DayOfWeek,
		IsActive:        r.IsActive,
		LastProcessedAt: r.LastProcessedAt,
		CreatedAt:       r.CreatedAt,
	}
}

func (h *RecurringHandler) parse(c *gin.Context) (*models.RecurringTransaction, bool) {
	var req recurringReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return nil, false
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid amount")
		return nil, false
	}
	if err := util.ValidateAmount(amount); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return nil, false
	}
	if err := util.ValidateFrequency(req.Frequency, req.DayOfMonth, req.DayOfWeek); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return nil, false
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return &models.RecurringTransaction{
		Type:        req.Type,
		Source:      req.Source,
		Amount:      amount,
		Description: req.Description,
		Frequency:   req.Frequency,
		DayOfMonth:  req.DayOfMonth,
		DayOfWeek:   req.DayOfWeek,
		IsActive:    active,
	}, true
}

// Create adds a recurring definition.
func (h *RecurringHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	def, ok := h.parse(c)
	if !ok {
		return
	}
	def.UserID = user.ID

	if err := h.DB.Create(def).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "create failed")
		return
	}
	util.Success(c, util.Response{"recurring": toRecurringResp(def)})
}

// List returns the user's recurring definitions.
func (h *RecurringHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var defs []models.RecurringTransaction
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&defs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	items := make([]recurringResp, 0, len(defs))
	for i := range defs {
		items = append(items, toRecurringResp(&defs[i]))
	}
	util.Success(c, util.Response{"recurring": items})
}

// Update overwrites a recurring definition.
func (h *RecurringHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid id")
		return
	}

	in, ok := h.parse(c)
	if !ok {
		return
	}

	var def models.RecurringTransaction
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&def).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "recurring transaction not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		}
		return
	}

	def.Type = in.Type
	def.Source = in.Source
	def.Amount = in.Amount
	def.Description = in.Description
	def.Frequency = in.Frequency
	def.DayOfMonth = in.DayOfMonth
	def.DayOfWeek = in.DayOfWeek
	def.IsActive = in.IsActive

	if err := h.DB.Save(&def).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "update failed")
		return
	}
	util.Success(c, util.Response{"recurring": toRecurringResp(&def)})
}

// Delete removes a recurring definition.
func (h *RecurringHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid id")
		return
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, user.ID).
		Delete(&models.RecurringTransaction{})
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "delete failed")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "recurring transaction not found")
		return
	}
	util.Success(c, util.Response{"message": "recurring transaction deleted"})
}

// Process records ledger transactions for every due definition.
func (h *RecurringHandler) Process(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	results, err := h.Ledger.ProcessDue(user.ID, time.Now())
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "process failed")
		return
	}

	items := make([]transactionResp, 0, len(results))
	for i := range results {
		items = append(items, toTransactionResp(&results[i].Transaction))
	}
	util.Success(c, util.Response{
		"processed":    len(items),
		"transactions": items,
	})
}
