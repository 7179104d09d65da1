package handler

import (
	"errors"
	"net/http"
	"strconv"

	"cofrinho/internal/middleware"
	"cofrinho/internal/models"
	"cofrinho/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// FriendHandler serves friendship edges and friend goal visibility. Only
// goals of accepted friends are ever exposed; balances and transactions of a
// friend stay private.
type FriendHandler struct {
	DB *gorm.DB
}

func NewFriendHandler(db *gorm.DB) *FriendHandler {
	return &FriendHandler{DB: db}
}

type friendRequestReq struct {
	Email string `json:"email" binding:"required"`
}

func profileSummary(p *models.Profile) gin.H {
	return gin.H{
		"user_id":    p.UserID,
		"username":   p.Username,
		"email":      p.Email,
		"avatar_url": p.AvatarURL,
	}
}

// Search finds a profile by email.
func (h *FriendHandler) Search(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	email, err := util.ValidateEmail(c.Query("email"))
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid email")
		return
	}

	var profile models.Profile
	if err := h.DB.Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "no user with this email")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		}
		return
	}
	if profile.UserID == user.ID {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "you cannot add yourself")
		return
	}

	util.Success(c, util.Response{"profile": profileSummary(&profile)})
}

// SendRequest creates a pending friendship edge. At most one edge may exist
// per pair, so both directions are checked first.
func (h *FriendHandler) SendRequest(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var req friendRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid request")
		return
	}

	email, err := util.ValidateEmail(req.Email)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "invalid email")
		return
	}

	var profile models.Profile
	if err := h.DB.Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "no user with this email")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		}
		return
	}
	if profile.UserID == user.ID {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "you cannot add yourself")
		return
	}

	var friendship models.Friendship
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Friendship{}).
			Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
				user.ID, profile.UserID, profile.UserID, user.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errDuplicateEdge
		}

		friendship = models.Friendship{
			UserID:   user.ID,
			FriendID: profile.UserID,
			Status:   models.FriendshipPending,
		}
		return tx.Create(&friendship).Error
	})
	if err != nil {
		if errors.Is(err, errDuplicateEdge) {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "a request already exists or you are already friends")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "send request failed")
		}
		return
	}

	util.Success(c, util.Response{
		"request": gin.H{
			"id":        friendship.ID,
			"friend_id": friendship.FriendID,
			"status":    friendship.Status,
		},
	})
}

var errDuplicateEdge = errors.New("friendship edge already exists")

// ListRequests returns the pending requests addressed to the current user.
func (h *FriendHandler) ListRequests(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	var edges []models.Friendship
	if err := h.DB.
		Where("friend_id = ? AND status = ?", user.ID, models.FriendshipPending).
		Order("created_at DESC").
		Find(&edges).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	requesterIDs := make([]uint, 0, len(edges))
	for i := range edges {
		requesterIDs = append(requesterIDs, edges[i].UserID)
	}
	profiles := make(map[uint]models.Profile, len(requesterIDs))
	if len(requesterIDs) > 0 {
		var rows []models.Profile
		if err := h.DB.Where("user_id IN ?", requesterIDs).Find(&rows).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
			return
		}
		for i := range rows {
			profiles[rows[i].UserID] = rows[i]
		}
	}

	items := make([]gin.H, 0, len(edges))
	for i := range edges {
		item := gin.H{
			"id":         edges[i].ID,
			"created_at": edges[i].CreatedAt,
		}
		if p, ok := profiles[edges[i].UserID]; ok {
			item["from"] = profileSummary(&p)
		}
		items = append(items, item)
	}
	util.Success(c, util.Response{"requests": items})
}

// Respond accepts or rejects a pending request addressed to the current user.
func (h *FriendHandler) Respond(accept bool) gin.HandlerFunc {
	return func(c *gin.Context) {
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

		status := models.FriendshipRejected
		if accept {
			status = models.FriendshipAccepted
		}

		res := h.DB.Model(&models.Friendship{}).
			Where("id = ? AND friend_id = ? AND status = ?", id, user.ID, models.FriendshipPending).
			Update("status", status)
		if res.Error != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "update failed")
			return
		}
		if res.RowsAffected == 0 {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "request not found")
			return
		}

		util.Success(c, util.Response{"status": status})
	}
}

// CancelRequest deletes a pending request the current user sent.
func (h *FriendHandler) CancelRequest(c *gin.Context) {
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

	res := h.DB.
		Where("id = ? AND user_id = ? AND status = ?", id, user.ID, models.FriendshipPending).
		Delete(&models.Friendship{})
	if res.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "delete failed")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "request not found")
		return
	}

	util.Success(c, util.Response{"message": "request cancelled"})
}

// acceptedFriendIDs returns the ids on the other end of accepted edges.
func (h *FriendHandler) acceptedFriendIDs(userID uint) ([]uint, error) {
	var edges []models.Friendship
	if err := h.DB.
		Where("(user_id = ? OR friend_id = ?) AND status = ?", userID, userID, models.FriendshipAccepted).
		Find(&edges).Error; err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(edges))
	for i := range edges {
		if edges[i].UserID == userID {
			ids = append(ids, edges[i].FriendID)
		} else {
			ids = append(ids, edges[i].UserID)
		}
	}
	return ids, nil
}

// ListFriends returns the accepted friends with their goals.
func (h *FriendHandler) ListFriends(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return
	}

	ids, err := h.acceptedFriendIDs(user.ID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}
	if len(ids) == 0 {
		util.Success(c, util.Response{"friends": []gin.H{}})
		return
	}

	var profiles []models.Profile
	if err := h.DB.Where("user_id IN ?", ids).Find(&profiles).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	var goals []models.Goal
	if err := h.DB.Where("user_id IN ?", ids).
		Order("created_at DESC").
		Find(&goals).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}

	goalsByUser := make(map[uint][]goalResp)
	for i := range goals {
		goalsByUser[goals[i].UserID] = append(goalsByUser[goals[i].UserID], toGoalResp(&goals[i]))
	}

	friends := make([]gin.H, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		gs := goalsByUser[p.UserID]
		if gs == nil {
			gs = []goalResp{}
		}
		completed := 0
		for j := range gs {
			if gs[j].IsCompleted {
				completed++
			}
		}
		friends = append(friends, gin.H{
			"profile":         profileSummary(p),
			"goals":           gs,
			"total_goals":     len(gs),
			"completed_goals": completed,
		})
	}
	util.Success(c, util.Response{"friends": friends})
}

// FriendGoals returns the goals of one accepted friend.
func (h *FriendHandler) FriendGoals(c *gin.Context) {
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
	friendID := uint(id)

	var count int64
	if err := h.DB.Model(&models.Friendship{}).
		Where("((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)) AND status = ?",
			user.ID, friendID, friendID, user.ID, models.FriendshipAccepted).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return
	}
	if count == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "friend not found")
		return
	}

	var goals []models.Goal
	if err := h.DB.Where("user_id = ?", friendID).
		Order("created_at DESC").
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
