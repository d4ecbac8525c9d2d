package officer

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"karmasri/internal/auth"
	"karmasri/internal/events"
	"karmasri/internal/merge"
	"karmasri/pkg/models"
)

type Handler struct {
	Service  *Service
	Accounts *auth.Repo
	Hub      *events.Hub
}

func NewHandler(svc *Service, accounts *auth.Repo, hub *events.Hub) *Handler {
	return &Handler{Service: svc, Accounts: accounts, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/officer", h.bundle)
	rg.GET("/profile/:entity", h.section)
	rg.POST("/:entity", h.save)
	rg.PUT("/:entity/:id", h.save)
	rg.DELETE("/:entity/:id", h.remove)
}

type target struct {
	OfficerID string
	PEN       string
	Role      string
}

// resolve picks the officer a request acts on. GAD staff may name another
// officer with ?officer_id=.
func (h *Handler) resolve(c *gin.Context) (target, bool) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return target{}, false
	}
	t := target{OfficerID: claims.OfficerID, PEN: claims.PEN, Role: claims.Role}

	other := strings.TrimSpace(c.Query("officer_id"))
	if other == "" || other == claims.OfficerID {
		return t, true
	}
	if claims.Role != models.RoleGAD {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return target{}, false
	}
	a, err := h.Accounts.GetByID(c.Request.Context(), other)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup officer failed"})
		return target{}, false
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "officer not found"})
		return target{}, false
	}
	t.OfficerID, t.PEN = a.ID, a.PEN
	return t, true
}

func (h *Handler) bundle(c *gin.Context) {
	t, ok := h.resolve(c)
	if !ok {
		return
	}
	b, err := h.Service.Bundle(c.Request.Context(), t.OfficerID, t.PEN)
	if err != nil {
		h.fail(c, "load profile failed", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) section(c *gin.Context) {
	t, ok := h.resolve(c)
	if !ok {
		return
	}
	recs, err := h.Service.Section(c.Request.Context(), t.OfficerID, t.PEN, c.Param("entity"))
	if err != nil {
		h.fail(c, "load section failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity": c.Param("entity"), "items": recs})
}

func (h *Handler) save(c *gin.Context) {
	t, ok := h.resolve(c)
	if !ok {
		return
	}

	var p models.SavePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	entity := c.Param("entity")
	id := strings.TrimSpace(c.Param("id"))
	if c.Request.Method == http.MethodPut && id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		return
	}

	rec, err := h.Service.Save(c.Request.Context(), t.OfficerID, t.Role, entity, id, p)
	if err != nil {
		h.fail(c, "save failed", err)
		return
	}

	h.publish(events.TypeProfileUpdate, t.OfficerID, entity, rec.ID)

	e, _ := merge.Lookup(entity)
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	c.JSON(status, e.Encode(*rec))
}

func (h *Handler) remove(c *gin.Context) {
	t, ok := h.resolve(c)
	if !ok {
		return
	}
	entity, id := c.Param("entity"), strings.TrimSpace(c.Param("id"))
	if err := h.Service.Delete(c.Request.Context(), t.OfficerID, entity, id); err != nil {
		h.fail(c, "delete failed", err)
		return
	}

	h.publish(events.TypeProfileDelete, t.OfficerID, entity, id)
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *Handler) publish(typ, officerID, entity, recordID string) {
	if h.Hub == nil {
		return
	}
	h.Hub.Publish(events.ProfileEvent{
		Type:      typ,
		OfficerID: officerID,
		Entity:    entity,
		RecordID:  recordID,
		At:        time.Now().UTC(),
	})
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, ErrUnknownEntity):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown entity"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ErrEmptyPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "spark_data or user_data required"})
	default:
		h.Service.Log.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
