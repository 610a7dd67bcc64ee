package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/rest-prefix-service/internal/prefix"
	"github.com/maxviazov/rest-prefix-service/pkg/response"
)

// PrefixResolver is the read side of the prefix store the router needs.
type PrefixResolver interface {
	Resolve(ctx context.Context) prefix.Prefix
}

type prefixKey struct{}

// PrefixFromContext returns the prefix the request was routed under.
func PrefixFromContext(ctx context.Context) prefix.Prefix {
	if p, ok := ctx.Value(prefixKey{}).(prefix.Prefix); ok {
		return p
	}
	return prefix.Default
}

// Router hands requests under the resolved prefix to the API engine. It is mounted as
// the host engine's NoRoute handler, so host routes (health, admin) always win.
type Router struct {
	resolver PrefixResolver
	api      http.Handler
}

func NewRouter(resolver PrefixResolver, api http.Handler) *Router {
	return &Router{resolver: resolver, api: api}
}

func (rt *Router) Dispatch(c *gin.Context) {
	ctx := c.Request.Context()
	p := rt.resolver.Resolve(ctx)

	rest, ok := stripPrefix(c.Request.URL.Path, p)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, response.ErrorPayload{Error: "not_found"})
		return
	}

	req := c.Request.Clone(context.WithValue(ctx, prefixKey{}, p))
	req.URL.Path = rest
	req.URL.RawPath = ""
	rt.api.ServeHTTP(c.Writer, req)
}

// stripPrefix removes "/<p>" from path when it is the whole first segment.
func stripPrefix(path string, p prefix.Prefix) (string, bool) {
	if p == "" {
		return "", false
	}
	head := "/" + string(p)
	if !strings.HasPrefix(path, head) {
		return "", false
	}
	rest := path[len(head):]
	switch {
	case rest == "":
		return "/", true
	case rest[0] == '/':
		return rest, true
	default:
		return "", false
	}
}
