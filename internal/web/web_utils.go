package web

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-ulogview/internal/logging"
)

// isMainPath reports whether path addresses the tree view page
func isMainPath(path string) bool {
	return path == "" || path == "/"
}

// noRoute handles every request the router has no route for.
// The main page with an unknown verb gets 501, anything else 404.
func (s *WebServer) noRoute(c *gin.Context) {
	if isMainPath(c.Request.URL.Path) {
		s.renderError(c, http.StatusNotImplemented, fmt.Sprintf("Unsupported method ('%s')", c.Request.Method))
		return
	}
	s.renderError(c, http.StatusNotFound, "Not found")
}

// renderError answers with a short plain-text reason and stops the chain
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string) {
	logging.L().Debug("request rejected",
		"status", statusCode,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)
	c.String(statusCode, message)
	c.Abort()
}
