package main

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/esteira_backend/config"
	"bitbucket.org/mmdatafocus/esteira_backend/middlewares"
	"bitbucket.org/mmdatafocus/esteira_backend/models"
	"bitbucket.org/mmdatafocus/esteira_backend/models/reports"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const maxUploadSizeBytes int64 = 10 * 1024 * 1024

var allowedSpreadsheetExts = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

func uploadDir() string {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = "./uploads"
	}
	return dir
}

// readSpreadsheet parses the first sheet of an uploaded workbook into
// ordered string-keyed rows. The first row is the header row; headers
// are returned in sheet order so a validation run can re-export the
// file with its original column layout.
func readSpreadsheet(fileHeader *multipart.FileHeader) (headers []string, rows []models.RawRow, err error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open spreadsheet: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("spreadsheet has no sheets")
	}

	sheetRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read sheet: %v", err)
	}
	if len(sheetRows) < 2 {
		return nil, nil, fmt.Errorf("spreadsheet is empty")
	}

	headers = make([]string, 0, len(sheetRows[0]))
	for _, h := range sheetRows[0] {
		headers = append(headers, strings.TrimSpace(h))
	}

	rows = make([]models.RawRow, 0, len(sheetRows)-1)
	for _, cells := range sheetRows[1:] {
		row := make(models.RawRow, len(headers))
		empty := true
		for i, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(cells) {
				value = strings.TrimSpace(cells[i])
			}
			row[header] = value
			if value != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return headers, rows, nil
}

func checkUploadedFile(c *gin.Context) *multipart.FileHeader {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return nil
	}
	if fileHeader.Size > maxUploadSizeBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
		return nil
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedSpreadsheetExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx and .xls files are allowed"})
		return nil
	}
	return fileHeader
}

// archiveUpload keeps the original file on disk for traceability.
func archiveUpload(c *gin.Context, fileHeader *multipart.FileHeader) string {
	dir := uploadDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	name := fmt.Sprintf("upload-%s%s", uuid.New().String(), strings.ToLower(filepath.Ext(fileHeader.Filename)))
	dest := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(fileHeader, dest); err != nil {
		return ""
	}
	return name
}

func uploadSpreadsheetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		claim := middlewares.CtxValue(c.Request.Context())

		fileHeader := checkUploadedFile(c)
		if fileHeader == nil {
			return
		}

		sourceType := models.SourceType(c.PostForm("type"))
		if !sourceType.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid spreadsheet type"})
			return
		}

		_, rows, err := readSpreadsheet(fileHeader)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		savedAs := archiveUpload(c, fileHeader)

		result, err := models.ProcessBatch(c.Request.Context(), rows, sourceType, claim.ID)
		if err != nil {
			config.LogError(logger, "uploads.go", "uploadSpreadsheetHandler", "ProcessBatch", sourceType, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error processing spreadsheet"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":  "spreadsheet processed successfully",
			"filename": savedAs,
			"rowCount": result.Total,
			"type":     sourceType,
			"stats":    result,
		})
	}
}

func validateSpreadsheetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		claim := middlewares.CtxValue(c.Request.Context())

		fileHeader := checkUploadedFile(c)
		if fileHeader == nil {
			return
		}

		headers, rows, err := readSpreadsheet(fileHeader)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		run, err := models.ValidateBatch(c.Request.Context(), rows, claim.ID)
		if err != nil {
			config.LogError(logger, "uploads.go", "validateSpreadsheetHandler", "ValidateBatch", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error validating spreadsheet"})
			return
		}

		workbook, err := reports.BuildValidatedWorkbook(headers, run.ValidatedRows)
		if err != nil {
			config.LogError(logger, "uploads.go", "validateSpreadsheetHandler", "BuildValidatedWorkbook", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error writing validated spreadsheet"})
			return
		}

		dir := uploadDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error writing validated spreadsheet"})
			return
		}
		name := fmt.Sprintf("validated-%s.xlsx", uuid.New().String())
		if err := workbook.SaveAs(filepath.Join(dir, name)); err != nil {
			config.LogError(logger, "uploads.go", "validateSpreadsheetHandler", "SaveAs", name, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "error writing validated spreadsheet"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":     "spreadsheet validated successfully",
			"filename":    name,
			"downloadUrl": "/uploads/" + name,
			"rowCount":    run.Stats.Total,
			"stats":       run.Stats,
		})
	}
}

type uploadEntry struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func listUploadsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := os.ReadDir(uploadDir())
		if err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusOK, gin.H{"uploads": []uploadEntry{}})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list uploads"})
			return
		}

		uploads := make([]uploadEntry, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			uploads = append(uploads, uploadEntry{
				Filename:   e.Name(),
				Size:       info.Size(),
				UploadedAt: info.ModTime(),
			})
		}
		sort.Slice(uploads, func(i, j int) bool { return uploads[i].UploadedAt.After(uploads[j].UploadedAt) })
		c.JSON(http.StatusOK, gin.H{"uploads": uploads})
	}
}
