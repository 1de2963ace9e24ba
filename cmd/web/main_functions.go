package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/go-while/go-ulogview/internal/config"
)

var errHelp = flag.ErrHelp

var Prof *prof.Profiler

// options holds the parsed command line
type options struct {
	filename   string
	port       int
	configFile string
	logLevel   string
	sslCert    string
	sslKey     string
	pprofAddr  string
	version    bool

	set map[string]bool // flags given explicitly
}

// parseArgs parses "<filename> [-p|--port PORT] [flags]".
// Flags may come before or after the filename.
func parseArgs(progname string, args []string, output io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}

	fs := flag.NewFlagSet(progname, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&opts.port, "p", config.DefaultListenPort, "a port to serve http connections.")
	fs.IntVar(&opts.port, "port", config.DefaultListenPort, "a port to serve http connections.")
	fs.StringVar(&opts.configFile, "config", "", "optional TOML config file (flags override its values)")
	fs.StringVar(&opts.logLevel, "loglevel", config.DefaultLogLevel, "minimum log level: debug, info, warning, error")
	fs.StringVar(&opts.sslCert, "sslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	fs.StringVar(&opts.sslKey, "sslkey", "", "SSL key file (/path/to/privkey.pem)")
	fs.StringVar(&opts.pprofAddr, "pprof", "", "address for the profiler web endpoint (e.g. 127.0.0.1:51111)")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(output, "usage: %s <filename> [-p|--port PORT] [flags]\n\n", progname)
		fmt.Fprintf(output, "shows data from ulogd sqlite3 database in a form of a web page\n\n")
		fmt.Fprintf(output, "  filename\n    \ta filename to load database from.\n")
		fs.PrintDefaults()
	}

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})

	if opts.version {
		return opts, nil
	}
	switch len(positional) {
	case 0:
		fs.Usage()
		return nil, errors.New("the following arguments are required: filename")
	case 1:
		opts.filename = positional[0]
	default:
		fs.Usage()
		return nil, fmt.Errorf("unrecognized arguments: %s", strings.Join(positional[1:], " "))
	}
	return opts, nil
}

// portSet reports whether -p or --port was given
func (o *options) portSet() bool {
	return o.set["p"] || o.set["port"]
}

// buildConfig layers defaults, the optional config file and explicit flags
func buildConfig(opts *options) (*config.MainConfig, error) {
	mainConfig := config.NewDefaultConfig()
	if opts.configFile != "" {
		if err := mainConfig.LoadFile(opts.configFile); err != nil {
			return nil, err
		}
	}

	mainConfig.Database.File = opts.filename
	if opts.portSet() {
		mainConfig.Web.ListenPort = opts.port
	}
	if opts.set["loglevel"] {
		mainConfig.Log.Level = opts.logLevel
	}
	if opts.set["sslcert"] {
		mainConfig.Web.CertFile = opts.sslCert
	}
	if opts.set["sslkey"] {
		mainConfig.Web.KeyFile = opts.sslKey
	}
	if opts.set["sslcert"] || opts.set["sslkey"] {
		mainConfig.Web.SSL = true
	}
	if opts.set["pprof"] {
		mainConfig.PprofAddr = opts.pprofAddr
	}

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}
	return mainConfig, nil
}

// startProfiler serves the cpu/mem profiler web endpoint in the background
func startProfiler(addr string) {
	Prof = prof.NewProf()
	go Prof.PprofWeb(addr)
	log.Printf("[WEB]: Profiler web endpoint on %s", addr)
}
