package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/rest-prefix-service/internal/prefix"
)

// NewAPIEngine builds the engine served below the resolved prefix. Paths here are
// relative to the prefix: "/" is the API root.
func NewAPIEngine(homeURL string) *gin.Engine {
	api := gin.New()
	// the engine only sees prefix-relative paths, so its redirects would drop the prefix
	api.RedirectTrailingSlash = false
	api.RedirectFixedPath = false
	api.Use(gin.Recovery())

	api.GET("/", func(c *gin.Context) {
		p := PrefixFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"prefix":     string(p),
			"api_root":   prefix.APIRoot(homeURL, p),
			"namespaces": []string{"v1"},
			"routes":     []string{"/", APIV1Path + "/ping"},
		})
	})

	v1 := api.Group(APIV1Path)
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "pong", "prefix": string(PrefixFromContext(c.Request.Context()))})
		})
	}
	return api
}
