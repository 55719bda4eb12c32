package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registry collects feature modules and mounts them under /api.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	api := engine.Group("/api")
	return &Registry{Engine: engine, API: api}
}

// Use adds middleware for every /api route. It must run before RegisterAll.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// RegisterAll mounts the middleware, a liveness probe and every module.
func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	r.Engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
