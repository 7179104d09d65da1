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

// TransactionHandler serves the transaction log and balance views.
type TransactionHandler struct {
	DB       *gorm.DB
	Ledger   *ledger.Service
	PageSize int
}

func NewTransactionHandler(db *gorm.DB, svc *ledger.Service, pageSize int) *TransactionHandler {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &TransactionHandler{DB: db, Ledger: svc, PageSize: pageSize}
}

type createTransactionReq struct {
	Type        string `json:"type" binding:"required,oneof=income expense"`
	Source      string `json:"source" binding:"required,oneof=physical pix"`
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description" binding:"max=255"`
	GoalID      *uint  `json:"goal_id"`
}

type transactionResp struct {
	ID          uint      `json:"id"`
	Type        string    `json:"type"`
	Source      string    `json:"source"`
	Amount      string    `json:"amount"`
	Description string    `json:"description,omitempty"`
	GoalID      *uint     `json:"goal_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTransactionResp(t *models.Transaction) transactionResp {
	return transactionResp{
		ID:          t.ID,
		Type:        t.Type,
		Source:      t.Source,
		Amount:      t.Amount.StringFixed(2),
		Description: t.Description,
		GoalID:      t.GoalID,
		CreatedAt:   t.CreatedAt,
	}
}

func balanceResp(b *models.Balance) gin.H {
	return gin.H{
		"physical_amount": b.PhysicalAmount.StringFixed(2),
		"pix_amount":      b.PixAmount.StringFixed(2),
		"updated_at":      b.UpdatedAt,
	}
}

// Create records one income or expense through the ledger and returns the
// authoritative post-commit state so the client never derives totals itself.
func (h *TransactionHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req createTransactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid amount")
		return
	}

	var res *ledger.Result
	switch req.Type {
	case models.TypeIncome:
		res, err = h.Ledger.RecordIncome(user.ID, ledger.IncomeInput{
			Source:      req.Source,
			Amount:      amount,
			Description: req.Description,
			GoalID:      req.GoalID,
		})
	case models.TypeExpense:
		if req.GoalID != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "an expense cannot be linked to a goal")
			return
		}
		res, err = h.Ledger.RecordExpense(user.ID, ledger.ExpenseInput{
			Source:      req.Source,
			Amount:      amount,
			Description: req.Description,
		})
	}
	if err != nil {
		if errors.Is(err, ledger.ErrGoalNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "goal not found")
			return
		}
		if errors.Is(err, ledger.ErrBalanceNotFound) {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "balance not found")
			return
		}
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}

	data := util.Response{
		"transaction": toTransactionResp(&res.Transaction),
		"balance":     balanceResp(&res.Balance),
	}
	if res.Goal != nil {
		data["goal"] = toGoalResp(res.Goal)
		data["goal_completed"] = res.GoalCompleted
	}
	util.Success(c, data)
}

// List returns the user's transaction history newest-first with optional
// type/source filters, pagination and summary totals over the filtered set.
func (h *TransactionHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.PageSize)))
	if size <= 0 || size > 100 {
		size = h.PageSize
	}
	offset := (page - 1) * size

	txType := c.Query("type")
	if txType != models.TypeIncome && txType != models.TypeExpense {
		txType = ""
	}
	source := c.Query("source")
	if source != models.SourcePhysical && source != models.SourcePix {
		source = ""
	}

	base := h.DB.Model(&models.Transaction{}).Where("user_id = ?", user.ID)
	if txType != "" {
		base = base.Where("type = ?", txType)
	}
	if source != "" {
		base = base.Where("source = ?", source)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	var trxs []models.Transaction
	if err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Limit(size).
		Offset(offset).
		Find(&trxs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	items := make([]transactionResp, 0, len(trxs))
	for i := range trxs {
		items = append(items, toTransactionResp(&trxs[i]))
	}

	// summary over the same filters
	var all []models.Transaction
	if err := base.Session(&gorm.Session{}).Find(&all).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "summary failed")
		return
	}

	totalIncome := decimal.Zero
	totalExpense := decimal.Zero
	for i := range all {
		if all[i].Type == models.TypeIncome {
			totalIncome = totalIncome.Add(all[i].Amount)
		} else {
			totalExpense = totalExpense.Add(all[i].Amount)
		}
	}

	util.Success(c, util.Response{
		"items": items,
		"total": total,
		"page":  page,
		"size":  size,
		"summary": gin.H{
			"total_income":  totalIncome.StringFixed(2),
			"total_expense": totalExpense.StringFixed(2),
			"net":           totalIncome.Sub(totalExpense).StringFixed(2),
		},
	})
}

// GetBalance returns the stored balance row.
func (h *TransactionHandler) GetBalance(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var balance models.Balance
	if err := h.DB.Where("user_id = ?", user.ID).First(&balance).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query balance failed")
		return
	}

	util.Success(c, util.Response{"balance": balanceResp(&balance)})
}

// CheckBalance compares the stored balance against totals derived from the
// transaction log.
func (h *TransactionHandler) CheckBalance(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	stored, derived, consistent, err := h.Ledger.CheckBalance(user.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "check balance failed")
		return
	}

	util.Success(c, util.Response{
		"stored": balanceResp(stored),
		"derived": gin.H{
			"physical_amount": derived.Physical.StringFixed(2),
			"pix_amount":      derived.Pix.StringFixed(2),
		},
		"consistent": consistent,
	})
}
