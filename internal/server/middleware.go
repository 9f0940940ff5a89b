package server

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evercode/routegen/internal/logx"
	"github.com/evercode/routegen/pkg/requestid"
)

type contextFieldSpec struct {
	ctxKey string
	logKey string
}

var accessLogContextFieldSpecs = []contextFieldSpec{
	{ctxKey: ctxKeySnapshot, logKey: "snapshot"},
	{ctxKey: ctxKeyRouters, logKey: "routers"},
}

func requestLoggerWithColor(l *log.Logger, color bool, requestIDHeaderKey string, accessFormatter *logx.AccessLogFormatter) gin.HandlerFunc {
	requestIDHeaderKey = requestid.ResolveHeaderKey(requestIDHeaderKey)
	if l == nil {
		l = log.New(os.Stdout, "", log.LstdFlags)
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logx.AccessEntry{
			Time:     time.Now(),
			Status:   c.Writer.Status(),
			Latency:  time.Since(start),
			ClientIP: c.ClientIP(),
			Method:   c.Request.Method,
			Path:     c.Request.URL.Path,
			Fields:   accessLogFields(c, requestIDHeaderKey),
		}
		if accessFormatter != nil {
			l.Println(accessFormatter.Format(entry, color))
			return
		}
		l.Println(logx.FormatRequestLine(entry, color))
	}
}

func accessLogFields(c *gin.Context, requestIDHeaderKey string) map[string]any {
	out := map[string]any{
		"request_id": c.GetString(requestIDHeaderKey),
	}
	if ua := c.Request.UserAgent(); ua != "" {
		out["user_agent"] = ua
	}
	for _, s := range accessLogContextFieldSpecs {
		if v, ok := c.Get(s.ctxKey); ok {
			out[s.logKey] = v
		}
	}
	return out
}
