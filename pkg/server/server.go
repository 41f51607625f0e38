// Package server exposes the env-var wiring system over HTTP. It owns the
// gin engine, the server lifecycle (start, signal handling, graceful
// shutdown), and the JSON API handlers.
package server

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ushadow/envwire/pkg/config"
	"github.com/ushadow/envwire/pkg/server/middleware"
)

var debug = false

// SetDebug toggles debug mode for the whole process: gin debug mode, debug
// level logging, and response body logging.
func SetDebug(debugEnabled bool) {
	debug = debugEnabled
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func GetDebug() bool {
	return debug
}

// Server is the HTTP server hosting the wiring API.
type Server struct {
	config          *config.Config
	api             *API
	httpServer      *http.Server
	shutdownHooks   []func() error
	shutdownChannel chan os.Signal
}

// NewServer creates a server over a loaded configuration and a bound API.
func NewServer(cfg *config.Config, api *API) *Server {
	return &Server{config: cfg, api: api}
}

// AddShutdownHook registers a function to run during graceful shutdown,
// after the HTTP listener has drained. Backends register their close
// functions here.
func (s *Server) AddShutdownHook(f func() error) {
	s.shutdownHooks = append(s.shutdownHooks, f)
}

// StartAndWaitForSignal starts the HTTP server and blocks until SIGINT or
// SIGTERM arrives, then shuts down gracefully.
func (s *Server) StartAndWaitForSignal() error {
	if err := s.Start(); err != nil {
		return err
	}
	return s.waitForSignal()
}

// Start configures the gin engine and begins listening. It returns once the
// listener goroutine is running.
func (s *Server) Start() error {
	if debug {
		log.Debug().Msg("Debug mode is enabled")
		log.Debug().Msgf("Listen address: %q", s.config.Server.Address)
		log.Debug().Msgf("Catalog directory: %q", s.config.Server.CatalogDir)
		log.Debug().Msgf("Settings backend: %q", s.config.Server.SettingsBackend)
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if gin.IsDebugging() {
		log.Info().Msg("Running in debug mode")
		engine.Use(bodyLogMiddleware, gin.ErrorLogger())
	} else {
		log.Info().Msg("Running in release mode")
		if err := engine.SetTrustedProxies(nil); err != nil {
			return err
		}
		engine.Use(gin.ErrorLoggerT(gin.ErrorTypePrivate))
	}
	engine.Use(
		gin.Logger(),
		gin.Recovery(),
		middleware.SecurityHeaders(""),
	)

	s.api.Bind(engine)

	s.httpServer = &http.Server{
		Addr:    s.config.Server.Address,
		Handler: engine,
	}

	log.Info().Msgf("Starting server on %s", s.config.Server.Address)
	s.listenAndServe()
	return nil
}

func (s *Server) waitForSignal() error {
	s.shutdownChannel = make(chan os.Signal, 1)
	signal.Notify(s.shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	log.Info().Msgf("Shutdown signal received (%s)", <-s.shutdownChannel)
	return s.Shutdown()
}

func (s *Server) listenAndServe() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("Listen error: %s", err)
		}
	}()
}

// Shutdown drains active connections and runs the registered shutdown hooks.
func (s *Server) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "forced shutdown")
	}

	log.Info().Msg("Executing shutdown hooks...")
	for _, hook := range s.shutdownHooks {
		if err := hook(); err != nil {
			log.Error().Msgf("Error during shutdown hook: %s", err)
		}
	}

	log.Info().Msg("Server exited gracefully")
	return nil
}

type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func bodyLogMiddleware(c *gin.Context) {
	blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
	c.Writer = blw
	c.Next()
	log.Debug().Msgf("Response body: %s", blw.body.String())
}
