// Package web provides the HTTP server and the tree view page for go-ulogview
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/go-while/go-ulogview/internal/config"
	"github.com/go-while/go-ulogview/internal/logging"
)

// WebServer represents the web server
type WebServer struct {
	Router     *gin.Engine
	Config     *config.WebConfig
	StartTime  time.Time // Track server start time for uptime calculations
	httpServer *http.Server
}

// NewServer creates a new web server instance
func NewServer(webconfig *config.WebConfig) *WebServer {
	router := gin.New()

	// 405 handling off: unknown verbs fall through to NoRoute
	router.HandleMethodNotAllowed = false
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	// Configure Gin to trust reverse proxy headers
	// Set trusted proxies for common reverse proxy setups (nginx, etc.)
	router.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	// Configure security headers based on SSL setup
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}

	router.Use(ApacheLogFormat())
	router.Use(gin.RecoveryWithWriter(logging.Writer(slog.LevelError)))
	router.Use(secure.New(secureConfig))

	server := &WebServer{
		Router: router,
		Config: webconfig,
	}
	server.httpServer = &http.Server{
		Handler:  server,
		ErrorLog: log.New(logging.Writer(slog.LevelWarn), "", 0),
	}
	if files, err := ListEmbeddedFiles(); err == nil {
		logging.L().Debug("embedded static files", "files", files)
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	s.Router.GET("/", s.mainPage)
	s.Router.POST("/", s.mainPage)
	s.Router.HEAD("/", s.mainPage)

	// everything else: 404, or 501 for unsupported verbs on the main page
	s.Router.NoRoute(s.noRoute)
}

// ServeHTTP maps the empty request path onto "/" before gin routes it.
// An absolute-form request target without a path ("GET http://host HTTP/1.1")
// arrives with an empty URL.Path.
func (s *WebServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "" {
		r.URL.Path = "/"
		r.URL.RawPath = ""
	}
	s.Router.ServeHTTP(w, r)
}

// Addr returns the listen address built from the config
func (s *WebServer) Addr() string {
	return net.JoinHostPort(s.Config.ListenAddr, strconv.Itoa(s.Config.ListenPort))
}

// Listen binds the listening socket without serving yet
func (s *WebServer) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return ln, nil
}

// Serve answers requests on ln until Shutdown is called.
// It returns http.ErrServerClosed after a clean shutdown.
func (s *WebServer) Serve(ln net.Listener) error {
	s.StartTime = time.Now() // Set the start time for uptime calculations
	if s.Config.SSL {
		if s.Config.CertFile == "" || s.Config.KeyFile == "" {
			return errors.New("SSL enabled but cert_file or key_file not specified in config")
		}
		log.Printf("[WEB]: Starting HTTPS server on %s", ln.Addr())
		return s.httpServer.ServeTLS(ln, s.Config.CertFile, s.Config.KeyFile)
	}
	log.Printf("[WEB]: Starting HTTP server on %s", ln.Addr())
	return s.httpServer.Serve(ln)
}

// Shutdown stops accepting connections and waits for active requests
func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns how long the server has been serving
func (s *WebServer) Uptime() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime)
}

// ApacheLogFormat writes one combined-format access line per request to the
// log sink at info level
func ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output: logging.Writer(slog.LevelInfo),
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s"`+"\n",
				param.ClientIP,
				param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.BodySize,
				param.Request.Referer(),
				param.Request.UserAgent(),
			)
		},
	})
}
