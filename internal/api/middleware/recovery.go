package middleware

import (
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stocksync/internal/logger"
)

func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if err, ok := recovered.(error); ok && brokenPipe(err) {
			c.Abort()
			return
		}

		fields := []zap.Field{
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		}
		if gin.IsDebugging() {
			fields = append(fields,
				zap.String("request", dumpRequest(c.Request)),
				zap.ByteString("stack", debug.Stack()),
			)
		}
		log.Error("[Recovery] panic recovered", fields...)

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Internal server error",
		})
	})
}

func brokenPipe(err error) bool {
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne.Err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}

// dumpRequest renders the request headers with credentials masked.
func dumpRequest(r *http.Request) string {
	raw, _ := httputil.DumpRequest(r, false)
	lines := strings.Split(string(raw), "\r\n")
	for i, line := range lines {
		name, _, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "authorization", "cookie":
			lines[i] = name + ": *"
		}
	}
	return strings.Join(lines, "\r\n")
}
