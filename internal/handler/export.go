package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"cofrinho/internal/middleware"
	"cofrinho/internal/models"
	"cofrinho/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportHandler serves transaction history downloads.
type ExportHandler struct {
	DB *gorm.DB
}

func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{DB: db}
}

var exportHeaders = []string{"Type", "Source", "Amount", "Description", "Goal", "Date"}

func (h *ExportHandler) loadTransactions(c *gin.Context) ([]models.Transaction, map[uint]string, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "not logged in")
		return nil, nil, false
	}

	var trxs []models.Transaction
	if err := h.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC, id DESC").
		Find(&trxs).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "query failed")
		return nil, nil, false
	}

	goalNames := make(map[uint]string)
	var goals []models.Goal
	if err := h.DB.Where("user_id = ?", user.ID).Find(&goals).Error; err == nil {
		for i := range goals {
			goalNames[goals[i].ID] = goals[i].Name
		}
	}
	return trxs, goalNames, true
}

func exportRow(t *models.Transaction, goalNames map[uint]string) []string {
	goalName := ""
	if t.GoalID != nil {
		goalName = goalNames[*t.GoalID]
	}
	return []string{
		t.Type,
		t.Source,
		t.Amount.StringFixed(2),
		t.Description,
		goalName,
		t.CreatedAt.Format("2006-01-02"),
	}
}

// ExportCSV downloads the transaction history as CSV.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	trxs, goalNames, ok := h.loadTransactions(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.csv\"",
		time.Now().Format("20060102")))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// UTF-8 BOM so spreadsheet apps detect the encoding
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer.Write(exportHeaders)
	for i := range trxs {
		writer.Write(exportRow(&trxs[i], goalNames))
	}
}

// ExportXLSX downloads the transaction history as XLSX.
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	trxs, goalNames, ok := h.loadTransactions(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	sheetName := "Transactions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "create sheet failed")
		return
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, header := range exportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for idx := range trxs {
		row := idx + 2
		for col, value := range exportRow(&trxs[idx], goalNames) {
			cell := fmt.Sprintf("%c%d", 'A'+col, row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	f.SetColWidth(sheetName, "A", "B", 10)
	f.SetColWidth(sheetName, "C", "C", 12)
	f.SetColWidth(sheetName, "D", "D", 30)
	f.SetColWidth(sheetName, "E", "E", 20)
	f.SetColWidth(sheetName, "F", "F", 12)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"transactions_%s.xlsx\"",
		time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "export failed")
	}
}
