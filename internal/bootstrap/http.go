package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Popie52/pinger/internal/core"
	"github.com/Popie52/pinger/internal/endpoint"
	"github.com/Popie52/pinger/internal/metrics"
	"github.com/Popie52/pinger/internal/model"
	"github.com/Popie52/pinger/internal/queue"
)

type enqueueRequest struct {
	URL    string `json:"url" binding:"required"`
	Method string `json:"method"`
}

func newRouter(
	ctx context.Context,
	d *core.Dispatcher,
	eps *endpoint.List,
	m *metrics.Metrics,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metricsHandler := m.Handler()
	r.GET("/metrics", func(c *gin.Context) {
		_, _ = d.RefreshDepth(c.Request.Context())
		metricsHandler.ServeHTTP(c.Writer, c.Request)
	})

	r.GET("/stats", func(c *gin.Context) {
		_, _ = d.RefreshDepth(c.Request.Context())
		c.JSON(http.StatusOK, m.Snapshot())
	})

	r.POST("/enqueue", enqueueHandler(ctx, d, eps))

	return r
}

// enqueueHandler accepts one extra request, but only for an endpoint the
// pinger was configured with.
func enqueueHandler(ctx context.Context, d *core.Dispatcher, eps *endpoint.List) gin.HandlerFunc {
	return func(c *gin.Context) {
		select {
		case <-ctx.Done():
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pinger is shutting down"})
			return
		default:
		}

		var req enqueueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// submit the list's own copy, never the client's spelling
		ep, ok := eps.Lookup(model.Endpoint{Method: req.Method, URL: req.URL})
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is not in the target list"})
			return
		}

		queued, err := d.Submit(c.Request.Context(), ep)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"id": queued.ID, "status": "queued"})
	}
}
