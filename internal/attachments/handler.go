package attachments

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/storage/object"
	"portfolio-backend/internal/shared/telemetry"
)

const maxAttachmentBytes = 10 << 20 // 10 MiB

// Handler accepts attachment uploads.
type Handler struct {
	Store object.ObjectStore
}

// NewHandler constructs a Handler.
func NewHandler(store object.ObjectStore) *Handler {
	return &Handler{Store: store}
}

// RegisterRoutes attaches attachment routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/attachments", h.upload)
}

// UploadResponse carries stored-attachment metadata plus any extracted
// text. The client folds both into the subsequent generate request.
type UploadResponse struct {
	AttachmentID string `json:"attachmentId"`
	FileName     string `json:"fileName"`
	SizeBytes    int64  `json:"sizeBytes"`
	MimeType     string `json:"mimeType"`
	Text         string `json:"text,omitempty"`
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file field is required", nil)
		return
	}
	if fileHeader.Size > maxAttachmentBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "attachment exceeds the 10MB limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes+1))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}
	if int64(len(data)) > maxAttachmentBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "attachment exceeds the 10MB limit", nil)
		return
	}

	storageKey, size, mimeType, err := h.Store.Save(c.Request.Context(), userID, fileHeader.Filename, bytes.NewReader(data))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store attachment", nil)
		return
	}

	text, err := Text(data, mimeType, fileHeader.Filename)
	if err != nil {
		// Extraction failure is not fatal; the metadata is still usable.
		telemetry.Error("attachment.text_extract", map[string]any{
			"user_id":     userID,
			"storage_key": storageKey,
			"error":       err.Error(),
		})
		text = ""
	}

	id := uuid.NewString()
	c.Set("attachmentId", id)
	respond.JSON(c, http.StatusCreated, UploadResponse{
		AttachmentID: id,
		FileName:     fileHeader.Filename,
		SizeBytes:    size,
		MimeType:     mimeType,
		Text:         text,
	})
}
