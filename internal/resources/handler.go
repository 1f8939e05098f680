package resources

import (
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/middleware"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/database"
	"github.com/opencircle/backend/pkg/response"
	"github.com/opencircle/backend/pkg/storage"
)

// Handler serves resource upload, metadata, download and deletion. A
// resource's directory is its uploader's account UUID, which doubles as the
// ownership check.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a resources handler.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, s3: s3, logger: logger}
}

// RegisterRoutes mounts the resource endpoints under the authed group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/resource")
	g.POST("", h.Upload)
	g.GET("/:id", h.Get)
	g.GET("/:id/url", h.SignedURL)
	g.GET("/:id/download", h.Download)
	g.DELETE("/:id", h.Delete)
}

// Upload stores a multipart file under the caller's directory with a
// generated filename and records the reference row.
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if file.Size > storage.MaxResourceFileSize {
		response.BadRequest(c, "file exceeds the 10MB limit")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !storage.ValidateImageFileType(contentType, file.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}

	directory := middleware.AccountUUID(c)
	ext := strings.ToLower(path.Ext(file.Filename))
	filename := strings.ReplaceAll(uuid.NewString(), "-", "") + ext

	src, err := file.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer src.Close()

	key := storage.ResourceKey(directory, filename)
	publicURL, err := h.s3.Upload(c.Request.Context(), key, storage.ContentTypeForFilename(filename), src, file.Size)
	if err != nil {
		h.logger.Error("upload resource", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to store file")
		return
	}

	res := &models.Resource{Directory: directory, Filename: filename, PublicURL: publicURL}
	if err := h.repo.Create(c.Request.Context(), res); err != nil {
		h.logger.Error("create resource row", zap.Error(err))
		// Orphaned object; best effort cleanup.
		if delErr := h.s3.DeleteObject(c.Request.Context(), key); delErr != nil {
			h.logger.Warn("cleanup orphaned object", zap.Error(delErr), zap.String("key", key))
		}
		response.Internal(c, "failed to record resource")
		return
	}
	response.Created(c, res)
}

// Get returns resource metadata including the public URL.
func (h *Handler) Get(c *gin.Context) {
	res, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, res)
}

// signedURLValidity is how long a pre-signed download link stays usable.
const signedURLValidity = 15 * time.Minute

// SignedURL returns a short-lived pre-signed download link, letting clients
// fetch large files straight from the bucket instead of proxying through the
// API.
func (h *Handler) SignedURL(c *gin.Context) {
	res, ok := h.load(c)
	if !ok {
		return
	}
	key := storage.ResourceKey(res.Directory, res.Filename)
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), key, signedURLValidity)
	if err != nil {
		h.logger.Error("presign resource url", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to sign download url")
		return
	}
	response.OK(c, gin.H{"url": url, "expires_in": int(signedURLValidity.Seconds())})
}

// Download proxies the object bytes through the API.
func (h *Handler) Download(c *gin.Context) {
	res, ok := h.load(c)
	if !ok {
		return
	}
	key := storage.ResourceKey(res.Directory, res.Filename)
	body, contentType, err := h.s3.GetObjectStream(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("stream resource", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to fetch file")
		return
	}
	defer body.Close()
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(res.Filename)
	}
	c.Header("Content-Type", contentType)
	c.Status(200)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.logger.Warn("copy resource body", zap.Error(err))
	}
}

// Delete removes the object and its row. Only the uploader may delete.
func (h *Handler) Delete(c *gin.Context) {
	res, ok := h.load(c)
	if !ok {
		return
	}
	if res.Directory != middleware.AccountUUID(c) {
		response.Forbidden(c, "resource belongs to another account")
		return
	}
	key := storage.ResourceKey(res.Directory, res.Filename)
	if err := h.s3.DeleteObject(c.Request.Context(), key); err != nil {
		h.logger.Error("delete resource object", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to delete file")
		return
	}
	if _, err := h.repo.Delete(c.Request.Context(), res.ID); err != nil {
		h.logger.Error("delete resource row", zap.Error(err))
		response.Internal(c, "failed to delete resource")
		return
	}
	response.OK(c, gin.H{"message": "resource deleted"})
}

func (h *Handler) load(c *gin.Context) (*models.Resource, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid resource id")
		return nil, false
	}
	res, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if database.IsNoRows(err) {
			response.NotFound(c, "resource not found")
		} else {
			h.logger.Error("load resource", zap.Error(err))
			response.Internal(c, "failed to load resource")
		}
		return nil, false
	}
	return res, true
}
