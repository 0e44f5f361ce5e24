package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/voicebridge/internal/audit"
	"github.com/nerrad567/voicebridge/internal/bridges/homekit"
	"github.com/nerrad567/voicebridge/internal/generator"
	"github.com/nerrad567/voicebridge/internal/homeassistant"
	"github.com/nerrad567/voicebridge/internal/infrastructure/config"
	"github.com/nerrad567/voicebridge/internal/infrastructure/database"
	"github.com/nerrad567/voicebridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/voicebridge/internal/infrastructure/logging"
	"github.com/nerrad567/voicebridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/voicebridge/internal/store"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight
// requests before cutting remaining connections.
const gracefulShutdownTimeout = 10 * time.Second

// Deps carries the server's collaborators. Fields marked optional may be
// nil; New rejects a nil value for any of the others.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Store     *store.Store
	Directory *homeassistant.Directory
	Generator *generator.Generator
	Bridges   *homekit.Manager
	Hub       *homeassistant.Client
	DB        *database.DB     // optional: health and pool stats endpoints
	Audit     audit.Repository // optional: mutation audit trail
	MQTT      *mqtt.Client     // optional: event announcements
	Influx    *influxdb.Client // optional: operation metrics
	Version   string
}

// Server is the HTTP API server for voicebridge.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	store     *store.Store
	directory *homeassistant.Directory
	generator *generator.Generator
	bridges   *homekit.Manager
	hub       *homeassistant.Client
	db        *database.DB
	auditRepo audit.Repository
	mqtt      *mqtt.Client
	influx    *influxdb.Client
	version   string
	server    *http.Server
	auditCh   chan *audit.Entry
	startTime time.Time
	cancel    context.CancelFunc // cancels background goroutines on Close()
}

// New assembles the server from its dependencies. Nothing listens until
// Start is called.
//
// Parameters:
//   - deps: Collaborators for the server; see Deps for which are optional
//
// Returns:
//   - *Server: Server ready for Start
//   - error: If a mandatory dependency is nil
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("config store is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("entity directory is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("artifact generator is required")
	}
	if deps.Bridges == nil {
		return nil, fmt.Errorf("bridge manager is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("hub client is required")
	}
	// Audit, MQTT, and InfluxDB stay optional. Mutations work without
	// them, they just go unrecorded and unannounced.

	s := &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		store:     deps.Store,
		directory: deps.Directory,
		generator: deps.Generator,
		bridges:   deps.Bridges,
		hub:       deps.Hub,
		db:        deps.DB,
		auditRepo: deps.Audit,
		mqtt:      deps.MQTT,
		influx:    deps.Influx,
		version:   deps.Version,
		startTime: time.Now(),
	}

	if deps.Audit != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	return s, nil
}

// Start launches the audit writer and the HTTP listener, both in
// background goroutines. Listen failures (port in use, bad certificate)
// surface in the log rather than the return value because the listener
// outlives this call. Stop the server with Close.
func (s *Server) Start(ctx context.Context) error {
	// The audit writer must answer to Close even when the parent context
	// survives, so it hangs off an internal one.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// One goroutine owns all audit writes; SQLite has a single writer.
	if s.auditCh != nil {
		go s.drainAuditLog(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close stops the audit writer and drains in-flight requests. Calling it
// before Start is a no-op.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
