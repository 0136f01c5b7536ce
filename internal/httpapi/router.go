// Package httpapi exposes pool snapshots and lifecycle operations over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goliatone/go-gridpool/pool"
)

// Pools is the lifecycle surface the API drives, implemented by di.Container.
type Pools interface {
	Names() []string
	Lookup(name string) (*pool.Handle, error)
	Pool(ctx context.Context, name string) (*pool.Handle, error)
	Destroy(ctx context.Context, name string, keepAlive bool) error
	Snapshot(ctx context.Context, name string) (pool.Snapshot, error)
	Snapshots(ctx context.Context) ([]pool.Snapshot, error)
}

// Option configures the router.
type Option func(*handler)

// WithLogger sets the request and error logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithGatherer exposes gatherer on GET /metrics.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(h *handler) {
		h.gatherer = gatherer
	}
}

type handler struct {
	pools    Pools
	logger   *zap.Logger
	gatherer prometheus.Gatherer
}

// NewRouter returns the gin engine serving the API:
//
//	GET    /healthz
//	GET    /metrics
//	GET    /pools
//	GET    /pools/:name
//	POST   /pools/:name/resolve
//	DELETE /pools/:name?keep_alive=true|false
//
// DELETE answers 409 for a discovered pool, which only its creator may destroy.
func NewRouter(pools Pools, opts ...Option) *gin.Engine {
	h := &handler{pools: pools, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}

	router := gin.New()
	router.Use(RequestLogger(h.logger), gin.Recovery())

	router.GET("/healthz", h.health)
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/pools")
	api.GET("", h.list)
	api.GET("/:name", h.get)
	api.POST("/:name/resolve", h.resolve)
	api.DELETE("/:name", h.destroy)

	return router
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"pools":  len(h.pools.Names()),
	})
}

func (h *handler) list(c *gin.Context) {
	snapshots, err := h.pools.Snapshots(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pools": snapshots})
}

func (h *handler) get(c *gin.Context) {
	snap, err := h.pools.Snapshot(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handler) resolve(c *gin.Context) {
	ctx := c.Request.Context()
	handle, err := h.pools.Pool(ctx, c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handle.Snapshot(ctx))
}

func (h *handler) destroy(c *gin.Context) {
	name := c.Param("name")
	handle, err := h.pools.Lookup(name)
	if err != nil {
		h.respondError(c, err)
		return
	}

	keepAlive := handle.KeepAlive()
	if raw := c.Query("keep_alive"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.respondError(c, errInvalidQuery("keep_alive", raw))
			return
		}
		keepAlive = parsed
	}

	ctx := c.Request.Context()
	if err := h.pools.Destroy(ctx, name, keepAlive); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handle.Snapshot(ctx))
}
