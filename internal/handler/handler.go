package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/maxviazov/rest-prefix-service/internal/service"
)

// Options carries the host-level settings the handlers need.
type Options struct {
	// HomeURL is the public site root used in API root previews.
	HomeURL string
	// AdminToken guards the admin group; empty disables the check.
	AdminToken string
}

// Register mounts health probes, the admin settings form and the prefix-routed API.
func Register(r *gin.Engine, repo Pinger, svc service.PrefixService, opts Options) {
	h := NewHealthHandler(repo)

	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)

	admin := r.Group(AdminPrefix, RequireAdminToken(opts.AdminToken))
	NewSettingsHandler(svc, opts.HomeURL).Register(admin)

	r.NoRoute(NewRouter(svc, NewAPIEngine(opts.HomeURL)).Dispatch)
}
