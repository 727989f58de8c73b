package upload

import (
	"io"
	"net/http"

	"chatserver/internal/providers/minio"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	minioP *minio.MinioProvider
	logger *zap.Logger
}

func NewHandler(minioP *minio.MinioProvider, logger *zap.Logger) *Handler {
	return &Handler{
		minioP: minioP,
		logger: logger,
	}
}

// @Summary Upload a file
// @Description Store an image or audio blob and return its public URL
// @Tags Upload
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Param kind formData string false "Blob kind: image or audio"
// @Success 200 {object} UploadedFileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/upload [post]
func (h *Handler) Upload(c *gin.Context) {
	if h.minioP == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "File storage not configured"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No file provided"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.Error("Failed to read uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read file"})
		return
	}

	kind := c.PostForm("kind")
	url, err := h.minioP.Store(c.Request.Context(), data, kind)
	if err != nil {
		h.logger.Error("Failed to store file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to store file"})
		return
	}

	c.JSON(http.StatusOK, UploadedFileResponse{URL: url})
}
