package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evercode/routegen/internal/logx"
	"github.com/evercode/routegen/pkg/config"
	"github.com/evercode/routegen/pkg/requestid"
)

const (
	ctxKeySnapshot = "routegen.snapshot"
	ctxKeyRouters  = "routegen.routers"
)

// DocumentPath is where the routing document is served; the reverse proxy's
// HTTP provider polls it.
const DocumentPath = "/json"

func NewRouter(
	cfg *config.Config,
	st *state,
	m *metrics,
	accessLogger *log.Logger,
	accessLoggerColor bool,
	requestIDHeaderKey string,
	accessFormatter *logx.AccessLogFormatter,
) *gin.Engine {
	resolvedRequestIDHeaderKey := requestid.ResolveHeaderKey(requestIDHeaderKey)
	r := gin.New()
	r.Use(requestIDMiddleware(resolvedRequestIDHeaderKey))
	if cfg.Logging.AccessLog {
		r.Use(requestLoggerWithColor(accessLogger, accessLoggerColor, resolvedRequestIDHeaderKey, accessFormatter))
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		snap := st.Snapshot()
		if snap == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"snapshot":  snap.ID,
			"loaded_at": snap.LoadedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	})

	r.GET(DocumentPath, func(c *gin.Context) {
		snap := st.Snapshot()
		if snap == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "routing document not loaded"})
			return
		}
		c.Set(ctxKeySnapshot, snap.ID)
		c.Set(ctxKeyRouters, len(snap.Document.HTTP.Routers))
		if m != nil {
			m.documentRequests.Inc()
		}
		c.JSON(http.StatusOK, snap.Document)
	})

	if m != nil && cfg.MetricsEnabled() {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})))
	}
	return r
}

func requestIDMiddleware(headerKey string) gin.HandlerFunc {
	headerKey = requestid.ResolveHeaderKey(headerKey)
	return func(c *gin.Context) {
		id := requestid.Accept(c.GetHeader(headerKey))
		c.Header(headerKey, id)
		c.Set(headerKey, id)
		c.Next()
	}
}
