package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"cofrinho/internal/config"
	"cofrinho/internal/database"
	"cofrinho/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: gin.TestMode},
		JWT:      config.JWTConfig{Secret: "test-secret", ExpireHours: 1, ResetExpireMins: 5},
		Security: config.SecurityConfig{BcryptCost: 4},
		App:      config.AppSubConfig{PageSize: 20},
	}

	db, err := database.Init(config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "handler_test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return router.SetupRouter(cfg, db)
}

type envelope struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var env envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return rr, env
}

func registerUser(t *testing.T, r *gin.Engine, email, username string) string {
	t.Helper()

	rr, env := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"password": "Senha123",
		"username": username,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	token, _ := env.Data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterLoginAndMe(t *testing.T) {
	r := setupTestRouter(t)

	registerUser(t, r, "ana@example.com", "ana")

	// wrong password
	rr, _ := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ana@example.com",
		"password": "Errada456",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// right password
	rr, env := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ana@example.com",
		"password": "Senha123",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	token, _ := env.Data["token"].(string)
	require.NotEmpty(t, token)

	rr, env = doJSON(t, r, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	user := env.Data["user"].(map[string]interface{})
	assert.Equal(t, "ana@example.com", user["email"])
	assert.Equal(t, "ana", user["username"])

	// duplicate registration is rejected
	rr, _ = doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "ana@example.com",
		"password": "Senha123",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	r := setupTestRouter(t)
	token := registerUser(t, r, "ana@example.com", "ana")

	rr, _ := doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = doJSON(t, r, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTransactionFlow(t *testing.T) {
	r := setupTestRouter(t)
	token := registerUser(t, r, "ana@example.com", "ana")

	// sign-up starts with a zero balance
	rr, env := doJSON(t, r, http.MethodGet, "/api/balance", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	balance := env.Data["balance"].(map[string]interface{})
	assert.Equal(t, "0.00", balance["physical_amount"])
	assert.Equal(t, "0.00", balance["pix_amount"])

	rr, env = doJSON(t, r, http.MethodPost, "/api/transactions", token, gin.H{
		"type":   "income",
		"source": "pix",
		"amount": "50.00",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	balance = env.Data["balance"].(map[string]interface{})
	assert.Equal(t, "50.00", balance["pix_amount"])

	rr, env = doJSON(t, r, http.MethodPost, "/api/transactions", token, gin.H{
		"type":        "expense",
		"source":      "physical",
		"amount":      "20.00",
		"description": "mercado",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	balance = env.Data["balance"].(map[string]interface{})
	assert.Equal(t, "-20.00", balance["physical_amount"])
	assert.Equal(t, "50.00", balance["pix_amount"])

	// an expense cannot be linked to a goal
	rr, _ = doJSON(t, r, http.MethodPost, "/api/transactions", token, gin.H{
		"type":    "expense",
		"source":  "pix",
		"amount":  "5.00",
		"goal_id": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env = doJSON(t, r, http.MethodGet, "/api/transactions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	items := env.Data["items"].([]interface{})
	require.Len(t, items, 2)
	newest := items[0].(map[string]interface{})
	assert.Equal(t, "expense", newest["type"]) // newest first

	summary := env.Data["summary"].(map[string]interface{})
	assert.Equal(t, "50.00", summary["total_income"])
	assert.Equal(t, "20.00", summary["total_expense"])

	rr, env = doJSON(t, r, http.MethodGet, "/api/balance/check", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, env.Data["consistent"])
}

func TestGoalFlow(t *testing.T) {
	r := setupTestRouter(t)
	token := registerUser(t, r, "ana@example.com", "ana")

	rr, env := doJSON(t, r, http.MethodPost, "/api/goals", token, gin.H{
		"name":          "Bicicleta",
		"target_amount": "100.00",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	goal := env.Data["goal"].(map[string]interface{})
	goalID := fmt.Sprintf("%.0f", goal["id"].(float64))
	assert.Equal(t, false, goal["is_completed"])

	// linked income of exactly the gap completes the goal
	rr, env = doJSON(t, r, http.MethodPost, "/api/transactions", token, gin.H{
		"type":    "income",
		"source":  "pix",
		"amount":  "100.00",
		"goal_id": goal["id"],
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, true, env.Data["goal_completed"])
	updated := env.Data["goal"].(map[string]interface{})
	assert.Equal(t, true, updated["is_completed"])
	assert.Equal(t, "100.00", updated["current_amount"])
	assert.NotNil(t, updated["completed_at"])

	rr, env = doJSON(t, r, http.MethodGet, "/api/goals/"+goalID+"/transactions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	deposits := env.Data["deposits"].([]interface{})
	require.Len(t, deposits, 1)

	rr, _ = doJSON(t, r, http.MethodDelete, "/api/goals/"+goalID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = doJSON(t, r, http.MethodGet, "/api/goals/"+goalID, token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFriendFlow(t *testing.T) {
	r := setupTestRouter(t)
	anaToken := registerUser(t, r, "ana@example.com", "ana")
	leoToken := registerUser(t, r, "leo@example.com", "leo")

	// leo has a goal ana will be able to see
	rr, _ := doJSON(t, r, http.MethodPost, "/api/goals", leoToken, gin.H{
		"name":          "Viagem",
		"target_amount": "2000.00",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = doJSON(t, r, http.MethodPost, "/api/friends/requests", anaToken, gin.H{
		"email": "leo@example.com",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// a duplicate request, in either direction, is rejected
	rr, _ = doJSON(t, r, http.MethodPost, "/api/friends/requests", leoToken, gin.H{
		"email": "ana@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env := doJSON(t, r, http.MethodGet, "/api/friends/requests", leoToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	requests := env.Data["requests"].([]interface{})
	require.Len(t, requests, 1)
	reqID := fmt.Sprintf("%.0f", requests[0].(map[string]interface{})["id"].(float64))

	rr, _ = doJSON(t, r, http.MethodPost, "/api/friends/requests/"+reqID+"/accept", leoToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, env = doJSON(t, r, http.MethodGet, "/api/friends", anaToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	friends := env.Data["friends"].([]interface{})
	require.Len(t, friends, 1)
	friend := friends[0].(map[string]interface{})
	goals := friend["goals"].([]interface{})
	require.Len(t, goals, 1)
	assert.Equal(t, "Viagem", goals[0].(map[string]interface{})["name"])
}

func TestPasswordResetFlow(t *testing.T) {
	r := setupTestRouter(t)
	registerUser(t, r, "ana@example.com", "ana")

	rr, env := doJSON(t, r, http.MethodPost, "/api/auth/password-reset", "", gin.H{
		"email": "ana@example.com",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	resetToken, _ := env.Data["reset_token"].(string)
	require.NotEmpty(t, resetToken)

	// an unknown email gets the same response without a token
	rr, env = doJSON(t, r, http.MethodPost, "/api/auth/password-reset", "", gin.H{
		"email": "ghost@example.com",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, env.Data["reset_token"])

	rr, _ = doJSON(t, r, http.MethodPost, "/api/auth/password-reset/confirm", "", gin.H{
		"token":        resetToken,
		"new_password": "NovaSenha1",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	// old password no longer works, new one does
	rr, _ = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ana@example.com",
		"password": "Senha123",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ana@example.com",
		"password": "NovaSenha1",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestExportXLSX(t *testing.T) {
	r := setupTestRouter(t)
	token := registerUser(t, r, "ana@example.com", "ana")

	rr, _ := doJSON(t, r, http.MethodPost, "/api/transactions", token, gin.H{
		"type":        "income",
		"source":      "pix",
		"amount":      "50.00",
		"description": "salario",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = doJSON(t, r, http.MethodGet, "/api/export/xlsx", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	// only the data sheet, no leftover default sheet
	assert.Equal(t, []string{"Transactions"}, f.GetSheetList())

	header, err := f.GetCellValue("Transactions", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Type", header)
	amount, err := f.GetCellValue("Transactions", "C2")
	require.NoError(t, err)
	assert.Equal(t, "50.00", amount)
}

func TestUnauthenticatedAccessRejected(t *testing.T) {
	r := setupTestRouter(t)

	for _, path := range []string{"/api/me", "/api/balance", "/api/goals", "/api/transactions"} {
		rr, _ := doJSON(t, r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}
