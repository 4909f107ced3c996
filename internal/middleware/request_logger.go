package middleware

import (
	"time"

	"github.com/bussewa/booking-backend/internal/utils"
	"github.com/gin-gonic/gin"
	ua "github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every request with latency and client device fields.
// Mobile clients dominate this API; the device breakdown in logs is what
// support uses to match a complaint to a request.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		parser := ua.New(c.Request.UserAgent())
		browser, _ := parser.Browser()

		deviceType := "desktop"
		if parser.Bot() {
			deviceType = "bot"
		} else if parser.Mobile() {
			deviceType = "mobile"
		}

		entry := logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"latency_ms":  time.Since(start).Milliseconds(),
			"client_ip":   utils.GetRealIP(c),
			"device_type": deviceType,
			"os":          parser.OS(),
			"browser":     browser,
		})

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}

		entry.Info("Request handled")
	}
}
