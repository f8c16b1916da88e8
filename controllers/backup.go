package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"creditbook/config"
	"creditbook/models"
	"creditbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The backup endpoints are an opaque blob store keyed by the authenticated
// owner: one blob per user, replaced on every upload, with no awareness of
// what the bytes contain.

func backupDir() string {
	if dir := os.Getenv("BACKUP_DIR"); dir != "" {
		return dir
	}
	return "backups"
}

// UploadBackup stores the request body as the owner's backup blob,
// replacing any previous one.
func UploadBackup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil || len(data) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Empty backup payload")
		return
	}

	dir := backupDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create backup directory")
		return
	}

	fileName := fmt.Sprintf("backup-%s.db", userID)
	filePath := filepath.Join(dir, fileName)
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to write backup file")
		return
	}

	var backup models.Backup
	err = config.DB.Where("user_id = ?", userID).First(&backup).Error
	switch {
	case err == nil:
		backup.FileName = fileName
		backup.FilePath = filePath
		backup.Size = int64(len(data))
		err = config.DB.Save(&backup).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		backup = models.Backup{
			ID:       uuid.New(),
			UserID:   userID,
			FileName: fileName,
			FilePath: filePath,
			Size:     int64(len(data)),
		}
		err = config.DB.Create(&backup).Error
	}
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save backup record")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"size":      backup.Size,
		"updatedAt": backup.UpdatedAt,
	})
}

// DownloadBackup streams the owner's backup blob back
func DownloadBackup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var backup models.Backup
	if err := config.DB.Where("user_id = ?", userID).First(&backup).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "No backup found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backup.FileName))
	c.File(backup.FilePath)
}

// BackupExists reports blob presence without transferring it (HEAD)
func BackupExists(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var count int64
	if err := config.DB.Model(&models.Backup{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if count == 0 {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}
