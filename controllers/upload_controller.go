package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devforge-studio/devforge-api/services"
	"github.com/devforge-studio/devforge-api/utils"
)

// UploadFile handles POST /api/v1/uploads - uploads a file to object
// storage and returns its public URL. The rest of the system only ever
// consumes the URL string (deliverables, chat attachments).
func UploadFile(c *gin.Context) {
	if _, ok := loadRequestUser(c); !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "A file is required")
		return
	}

	if err := utils.ValidateUploadFile(fileHeader); err != nil {
		if uploadErr, ok := err.(*utils.FileUploadError); ok {
			respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
		} else {
			respondError(c, http.StatusBadRequest, "INVALID_FILE", err.Error())
		}
		return
	}

	s3Service := services.GetS3Service()
	if s3Service == nil {
		respondError(c, http.StatusServiceUnavailable, "CONFIG_ERROR", "Object storage is not configured")
		return
	}

	url, err := s3Service.UploadFile(fileHeader)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Failed to upload file")
		return
	}

	respondOK(c, http.StatusCreated, gin.H{"url": url})
}
