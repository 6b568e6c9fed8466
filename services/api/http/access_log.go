package http

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/ward-monitor/services/api/db"
)

// accessLogMiddleware records every authenticated request once it has
// been handled. Write failures are logged and never fail the request.
func accessLogMiddleware(archive Archive) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		actor := c.GetString(ctxActor)
		if actor == "" && c.GetString(ctxRole) == "" {
			return
		}
		entry := db.AccessLog{
			Actor:     actor,
			Role:      c.GetString(ctxRole),
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Status:    c.Writer.Status(),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			LatencyMS: time.Since(start).Milliseconds(),
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 5*time.Second)
		defer cancel()
		if err := archive.InsertAccessLog(ctx, entry); err != nil {
			log.Printf("access log error: path=%s err=%v", entry.Path, err)
		}
	}
}
