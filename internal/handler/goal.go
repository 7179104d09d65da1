package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cofrinho/internal/ledger"
	"cofrinho/internal/middleware"
	"cofrinho/internal/models"
	"cofrinho/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GoalHandler serves savings goal endpoints.
type GoalHandler struct {
	DB     *gorm.DB
	Ledger *ledger.Service
}

func NewGoalHandler(db *gorm.DB, svc *ledger.Service) *GoalHandler {
	return &GoalHandler{DB: db, Ledger: svc}
}

type goalReq struct {
	Name         string `json:"name" binding:"required,max=128"`
	TargetAmount string `json:"target_amount" binding:"required"`
	ProductLink  string `json:"product_link" binding:"max=512"`
	ImageURL     string `json:"image_url" binding:"max=512"`
}

type goalResp struct {
	ID              uint       `json:"id"`
	Name            string     `json:"name"`
	TargetAmount    string     `json:"target_amount"`
	CurrentAmount   string     `json:"current_amount"`
	ProgressPercent float64    `json:"progress_percent"`
	ProductLink     string     `json:"product_link,omitempty"`
	ImageURL        string     `json:"image_url,omitempty"`
	IsCompleted     bool       `json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toGoalResp(g *models.Goal) goalResp {
	return goalResp{
		ID:              g.ID,
		Name:            g.Name,
		TargetAmount:    g.TargetAmount.StringFixed(2),
		CurrentAmount:   g.CurrentAmount.StringFixed(2),
		ProgressPercent: g.ProgressPercent(),
		ProductLink:     g.ProductLink,
		ImageURL:        g.ImageURL,
		IsCompleted:     g.IsCompleted,
		CompletedAt:     g.CompletedAt,
		CreatedAt:       g.CreatedAt,
	}
}

func (h *GoalHandler) parseInput(c *gin.Context) (*ledger.GoalInput, bool) {
	var req goalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return nil, false
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "goal name is empty")
		return nil, false
	}

	target, err := decimal.NewFromString(req.TargetAmount)
	if err != nil || !target.IsPositive() {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "target amount must be positive")
		return nil, false
	}

	return &ledger.GoalInput{
		Name:         req.Name,
		TargetAmount: target,
		ProductLink:  req.ProductLink,
		ImageURL:     req.ImageURL,
	}, true
}

func goalID(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// Create creates a new goal.
func (h *GoalHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	in, ok := h.parseInput(c)
	if !ok {
		return
	}

	goal, err := h.Ledger.CreateGoal(user.ID, *in)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "create goal failed")
		return
	}

	util.Success(c, util.Response{"goal": toGoalResp(goal)})
}

// List returns the user's goals, newest first.
func (h *GoalHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var goals []models.Goal
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").
		Find(&goals).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	items := make([]goalResp, 0, len(goals))
	for i := range goals {
		items = append(items, toGoalResp(&goals[i]))
	}
	util.Success(c, util.Response{"goals": items})
}

// Get returns one goal of the user.
func (h *GoalHandler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, ok := goalID(c)
	if !ok {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid id")
		return
	}

	var goal models.Goal
	if err := h.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "goal not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		}
		return
	}

	util.Success(c, util.Response{"goal": toGoalResp(&goal)})
}

// Update edits a goal's descriptive fields.
func (h *GoalHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, ok := goalID(c)
	if !ok {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid id")
		return
	}

	in, ok := h.parseInput(c)
	if !ok {
		return
	}

	goal, err := h.Ledger.EditGoal(user.ID, id, *in)
	if err != nil {
		if errors.Is(err, ledger.ErrGoalNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "goal not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "update goal failed")
		}
		return
	}

	util.Success(c, util.Response{"goal": toGoalResp(goal)})
}

// Delete removes a goal.
func (h *GoalHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, ok := goalID(c)
	if !ok {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid id")
		return
	}

	if err := h.Ledger.DeleteGoal(user.ID, id); err != nil {
		if errors.Is(err, ledger.ErrGoalNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "goal not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "delete goal failed")
		}
		return
	}

	util.Success(c, util.Response{"message": "goal deleted"})
}

// Deposits returns the income transactions linked to a goal, newest first.
func (h *GoalHandler) Deposits(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	id, ok := goalID(c)
	if !ok {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid id")
		return
	}

	trxs, err := h.Ledger.GoalDeposits(user.ID, id)
	if err != nil {
		if errors.Is(err, ledger.ErrGoalNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "goal not found")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		}
		return
	}

	items := make([]transactionResp, 0, len(trxs))
	for i := range trxs {
		items = append(items, toTransactionResp(&trxs[i]))
	}
	util.Success(c, util.Response{"deposits": items})
}
