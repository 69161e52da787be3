package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studypilot-backend/internal/http/response"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/services"
)

// UploadHandler manages the reference documents a student attaches to their
// chat sessions.
type UploadHandler struct {
	log     *logger.Logger
	uploads services.UploadService
}

func NewUploadHandler(uploads services.UploadService, baseLog *logger.Logger) *UploadHandler {
	return &UploadHandler{
		log:     baseLog.With("handler", "UploadHandler"),
		uploads: uploads,
	}
}

type fileInfo struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// POST /api/upload
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("no file in request"))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	stored, err := h.uploads.Save(c.Request.Context(), fileHeader.Filename, contentType, src)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUploadTypeNotAllowed):
			response.RespondError(c, http.StatusBadRequest, "file_type_not_allowed", err)
		case errors.Is(err, services.ErrUploadTooLarge):
			response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", err)
		default:
			h.log.Error("Upload failed", "original_name", fileHeader.Filename, "error", err)
			response.RespondError(c, http.StatusInternalServerError, "upload_failed", err)
		}
		return
	}

	response.RespondOK(c, gin.H{
		"success":      true,
		"filename":     stored.StoredName,
		"originalName": stored.OriginalName,
		"size":         stored.Size,
	})
}

// GET /api/files
func (h *UploadHandler) ListFiles(c *gin.Context) {
	files, err := h.uploads.List(c.Request.Context())
	if err != nil {
		h.log.Error("File listing failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}

	infos := make([]fileInfo, 0, len(files))
	for _, f := range files {
		infos = append(infos, fileInfo{
			Filename:   f.StoredName,
			Size:       f.Size,
			UploadedAt: f.CreatedAt,
		})
	}
	response.RespondOK(c, gin.H{"files": infos})
}

// DELETE /api/files/:filename
func (h *UploadHandler) DeleteFile(c *gin.Context) {
	name := c.Param("filename")

	found, err := h.uploads.Delete(c.Request.Context(), name)
	if err != nil {
		h.log.Error("File deletion failed", "filename", name, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}
	if !found {
		response.RespondError(c, http.StatusNotFound, "file_not_found", fmt.Errorf("file not found"))
		return
	}

	response.RespondOK(c, gin.H{"success": true})
}
