package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-ulogview/internal/logging"
)

const contentTypeHTML = "text/html; charset=utf-8"

// mainPage serves the tree view on "/" for GET, POST and HEAD.
// Query and form fields are parsed and dropped; they never change the reply.
func (s *WebServer) mainPage(c *gin.Context) {
	fields := s.parseFormFields(c)
	logging.L().Debug("main page request",
		"method", c.Request.Method,
		"fields", len(fields),
	)

	c.Data(http.StatusOK, contentTypeHTML, RenderMainPage())
}
