package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/rest-prefix-service/internal/model"
	"github.com/maxviazov/rest-prefix-service/internal/prefix"
	"github.com/maxviazov/rest-prefix-service/internal/service"
	"github.com/maxviazov/rest-prefix-service/pkg/response"
)

// SettingsHandler is the admin form backend for the prefix override.
type SettingsHandler struct {
	svc     service.PrefixService
	homeURL string
}

func NewSettingsHandler(svc service.PrefixService, homeURL string) *SettingsHandler {
	return &SettingsHandler{svc: svc, homeURL: homeURL}
}

func (h *SettingsHandler) Register(r *gin.RouterGroup) {
	g := r.Group(PrefixSettingsPath)
	{
		g.GET("", h.get)
		g.POST("", h.save)
		g.DELETE("", h.uninstall)
		g.POST("/preview", h.preview)
		g.POST(ActivatePath, h.activate)
		g.DELETE(CachePath, h.flush)
	}
}

// prefixRequest binds both JSON bodies and classic form posts.
type prefixRequest struct {
	Prefix string `json:"prefix" form:"prefix"`
}

func (h *SettingsHandler) get(c *gin.Context) {
	st, err := h.svc.Settings(c.Request.Context())
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, st)
}

func (h *SettingsHandler) save(c *gin.Context) {
	var req prefixRequest
	if err := c.ShouldBind(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	p, err := h.svc.Save(c.Request.Context(), req.Prefix)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, model.SavedPrefix{
		Prefix:  string(p),
		APIRoot: prefix.APIRoot(h.homeURL, p),
		Notice:  service.SaveNotice,
	})
}

func (h *SettingsHandler) preview(c *gin.Context) {
	var req prefixRequest
	if err := c.ShouldBind(&req); err != nil {
		response.WriteError(c, service.ErrInvalidInput)
		return
	}
	response.WriteData(c, http.StatusOK, h.svc.Preview(req.Prefix))
}

func (h *SettingsHandler) uninstall(c *gin.Context) {
	if err := h.svc.Uninstall(c.Request.Context()); err != nil {
		response.WriteError(c, err)
		return
	}
	h.get(c)
}

func (h *SettingsHandler) activate(c *gin.Context) {
	if err := h.svc.Activate(c.Request.Context()); err != nil {
		response.WriteError(c, err)
		return
	}
	h.get(c)
}

// flush drops this node's cached prefix, for settings changed
// by another process or node.
func (h *SettingsHandler) flush(c *gin.Context) {
	h.svc.Flush()
	h.get(c)
}
