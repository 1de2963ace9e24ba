// Web server showing a ulogd sqlite3 database as a web page
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-ulogview/internal/config"
	"github.com/go-while/go-ulogview/internal/database"
	"github.com/go-while/go-ulogview/internal/logging"
	"github.com/go-while/go-ulogview/internal/web"
)

var appVersion = "-unset-"

const shutdownTimeout = 5 * time.Second

// exit statuses
const (
	exitOK     = 0
	exitIO     = 1
	exitConfig = 2
)

func main() {
	config.AppVersion = appVersion
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[0], os.Args[1:], os.Stdout, os.Stderr))
}

// run does everything main does and returns the exit status.
// The listening socket is bound only after the database probe passed.
func run(ctx context.Context, progname string, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(progname, args, stderr)
	if errors.Is(err, errHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: error: %v\n", progname, err)
		return exitConfig
	}
	if opts.version {
		fmt.Fprintf(stdout, "go-ulogview %s\n", config.AppVersion)
		return exitOK
	}

	mainConfig, err := buildConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "%s: error: %v\n", progname, err)
		return exitConfig
	}

	minLevel, _ := config.ParseLogLevel(mainConfig.Log.Level) // checked by Validate
	closeLog, err := logging.Init(mainConfig.Log.File, minLevel)
	if err != nil {
		fmt.Fprintf(stderr, "%s: failed to open log file %s: %v\n", progname, mainConfig.Log.File, err)
		return exitIO
	}
	defer closeLog()
	log.Printf("[WEB]: Starting go-ulogview (version: %s)", config.AppVersion)

	info, err := database.Probe(ctx, mainConfig.Database.File)
	if err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprintf(stderr, "Can't open database %s\n", mainConfig.Database.File)
		logging.L().Error("can't open database", "file", mainConfig.Database.File, "error", err)
		return exitIO
	}
	log.Printf("[WEB]: Database %s: size=%d schema_version=%d", info.Path, info.Size, info.SchemaVersion)

	if mainConfig.PprofAddr != "" {
		startProfiler(mainConfig.PprofAddr)
	}

	server := web.NewServer(&mainConfig.Web)
	log.Printf("[WEB]: http server is starting...")
	ln, err := server.Listen()
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", progname, err)
		logging.L().Error("failed to bind", "addr", server.Addr(), "error", err)
		return exitIO
	}

	webServerErrChan := make(chan error, 1)
	go func() {
		webServerErrChan <- server.Serve(ln)
	}()
	log.Printf("[WEB]: http server is running on %s", ln.Addr())

	select {
	case <-ctx.Done():
		log.Printf("[WEB]: Received shutdown signal, initiating graceful shutdown...")
	case err := <-webServerErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.L().Error("web server failed", "error", err)
			fmt.Fprintf(stderr, "%s: web server failed: %v\n", progname, err)
			return exitIO
		}
		return exitOK
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.L().Warn("graceful shutdown failed", "error", err)
	}
	<-webServerErrChan
	log.Printf("[WEB]: Graceful shutdown completed after %s", server.Uptime().Round(time.Second))
	return exitOK
}
