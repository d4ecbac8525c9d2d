package docstore

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"karmasri/internal/auth"
	"karmasri/internal/metrics"
	"karmasri/pkg/models"
)

// Accepted content types, as sniffed from the payload.
var allowedTypes = []string{"application/pdf", "image/jpeg", "image/png"}

type Handler struct {
	Repo *Repo
	// Accounts resolves ?officer_id= on GAD uploads.
	Accounts *auth.Repo
	Blobs    BlobStore
	MaxBytes int64
	Log      *zap.Logger
}

func NewHandler(repo *Repo, accounts *auth.Repo, blobs BlobStore, maxBytes int64, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Repo: repo, Accounts: accounts, Blobs: blobs, MaxBytes: maxBytes, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("/get-document/:id", h.get)
	rg.DELETE("/document/:id", h.remove)
}

// ownerOf picks the officer an upload belongs to. GAD staff may upload
// for another officer with ?officer_id=.
func (h *Handler) ownerOf(c *gin.Context, claims *auth.Claims) (string, bool) {
	other := strings.TrimSpace(c.Query("officer_id"))
	if other == "" || other == claims.OfficerID {
		return claims.OfficerID, true
	}
	if claims.Role != models.RoleGAD {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return "", false
	}
	a, err := h.Accounts.GetByID(c.Request.Context(), other)
	if err != nil {
		h.Log.Error("lookup officer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup officer failed"})
		return "", false
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "officer not found"})
		return "", false
	}
	return a.ID, true
}

func (h *Handler) upload(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	owner, ok := h.ownerOf(c, claims)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	if h.MaxBytes > 0 && fh.Size > h.MaxBytes {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	defer f.Close()

	var r io.Reader = f
	if h.MaxBytes > 0 {
		r = io.LimitReader(f, h.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	if h.MaxBytes > 0 && int64(len(data)) > h.MaxBytes {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is empty"})
		return
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error": "unsupported file type " + mt.String() + "; allowed: " + strings.Join(allowedTypes, ", "),
		})
		return
	}

	doc := models.Document{
		ID:          uuid.NewString(),
		OfficerID:   owner,
		FileName:    filepath.Base(fh.Filename),
		ContentType: mt.String(),
		Size:        int64(len(data)),
	}

	ctx := c.Request.Context()
	if err := h.Repo.Create(ctx, doc); err != nil {
		h.Log.Error("create document", zap.Error(err))
		metrics.Uploads.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	if err := h.Blobs.Put(ctx, doc.ID, doc.ContentType, data); err != nil {
		h.Log.Error("store document", zap.String("document_id", doc.ID), zap.Error(err))
		_, _ = h.Repo.Delete(ctx, doc.ID)
		metrics.Uploads.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	metrics.Uploads.WithLabelValues("ok").Inc()
	c.JSON(http.StatusCreated, gin.H{
		"document_id":  doc.ID,
		"file_name":    doc.FileName,
		"content_type": doc.ContentType,
		"size":         doc.Size,
	})
}

// owned loads the document when the caller may see it. Officers see their
// own documents; GAD sees all. Others get a 404.
func (h *Handler) owned(c *gin.Context, allowGAD bool) (*models.Document, bool) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	doc, err := h.Repo.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		h.Log.Error("get document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return nil, false
	}
	if doc == nil || (doc.OfficerID != claims.OfficerID && !(allowGAD && claims.Role == models.RoleGAD)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return doc, true
}

func (h *Handler) get(c *gin.Context) {
	doc, ok := h.owned(c, true)
	if !ok {
		return
	}

	rc, err := h.Blobs.Open(c.Request.Context(), doc.ID)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.Log.Error("open document", zap.String("document_id", doc.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", "inline; filename="+strconv.Quote(doc.FileName))
	c.DataFromReader(http.StatusOK, doc.Size, doc.ContentType, rc, nil)
}

func (h *Handler) remove(c *gin.Context) {
	doc, ok := h.owned(c, false)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Repo.Delete(ctx, doc.ID); err != nil {
		h.Log.Error("delete document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if err := h.Blobs.Delete(ctx, doc.ID); err != nil {
		// the metadata is gone; an orphaned object is only logged
		h.Log.Warn("delete document blob", zap.String("document_id", doc.ID), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
