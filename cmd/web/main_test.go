package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-ulogview/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		filename string
		port     int
		portSet  bool
	}{
		{"filename only", []string{"test.db"}, "test.db", 80, false},
		{"short port after", []string{"test.db", "-p", "8080"}, "test.db", 8080, true},
		{"long port after", []string{"test.db", "--port", "8081"}, "test.db", 8081, true},
		{"port before", []string{"--port=8082", "test.db"}, "test.db", 8082, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseArgs("web", tt.args, &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, tt.filename, opts.filename)
			assert.Equal(t, tt.port, opts.port)
			assert.Equal(t, tt.portSet, opts.portSet())
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := map[string][]string{
		"no filename":   {},
		"two filenames": {"a.db", "b.db"},
		"bad port":      {"test.db", "-p", "eighty"},
		"unknown flag":  {"test.db", "--verbose"},
		"port no value": {"test.db", "-p"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := parseArgs("web", args, &out)
			assert.Error(t, err)
			assert.Contains(t, out.String(), "usage:")
		})
	}
}

func TestBuildConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "ulogview.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("[web]\nlisten_port = 9000\n[log]\nlevel = \"error\"\n"), 0o600))

	opts, err := parseArgs("web", []string{"test.db", "-config", cfgFile}, &bytes.Buffer{})
	require.NoError(t, err)
	cfg, err := buildConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, "test.db", cfg.Database.File)
	assert.Equal(t, 9000, cfg.Web.ListenPort)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.False(t, cfg.Web.SSL)

	// explicit flags win over the file
	opts, err = parseArgs("web", []string{"test.db", "-config", cfgFile, "-p", "9001", "-loglevel", "debug"}, &bytes.Buffer{})
	require.NoError(t, err)
	cfg, err = buildConfig(opts)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Web.ListenPort)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestBuildConfigErrors(t *testing.T) {
	tests := map[string][]string{
		"port zero":      {"test.db", "-p", "0"},
		"port too high":  {"test.db", "--port", "70000"},
		"ssl half set":   {"test.db", "-sslcert", "cert.pem"},
		"bad log level":  {"test.db", "-loglevel", "chatty"},
		"missing config": {"test.db", "-config", "/nonexistent/ulogview.toml"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			opts, err := parseArgs("web", args, &bytes.Buffer{})
			require.NoError(t, err)
			_, err = buildConfig(opts)
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

// freePort returns a port nothing listens on right now
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestRunMissingDatabase(t *testing.T) {
	t.Chdir(t.TempDir()) // log file lands here

	port := freePort(t)
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), "web", []string{"test.db", "-p", strconv.Itoa(port)}, &stdout, &stderr)

	assert.Equal(t, exitIO, code)
	assert.Contains(t, stderr.String(), "Can't open database test.db")

	_, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), time.Second)
	assert.Error(t, err, "nothing may listen after a failed startup")

	logData, err := os.ReadFile(config.DefaultLogFile)
	require.NoError(t, err)
	assert.Contains(t, string(logData), "can't open database")
}

func TestRunUsageErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitConfig, run(context.Background(), "web", nil, &stdout, &stderr))
	assert.Equal(t, exitConfig, run(context.Background(), "web", []string{"test.db", "-p", "0"}, &stdout, &stderr))
	assert.Equal(t, exitOK, run(context.Background(), "web", []string{"-h"}, &stdout, &stderr))
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitOK, run(context.Background(), "web", []string{"-version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "go-ulogview")
}

func TestRunServesUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("test.db", nil, 0o644))

	port := freePort(t)
	cfgFile := filepath.Join(dir, "ulogview.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("[web]\nlisten_addr = \"127.0.0.1\"\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		var stdout, stderr bytes.Buffer
		done <- run(ctx, "web", []string{"test.db", "-config", cfgFile, "-p", strconv.Itoa(port)}, &stdout, &stderr)
	}()

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, exitOK, code)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
