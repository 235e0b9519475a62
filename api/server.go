package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/lightlink-network/ll-withdrawal-engine/database"
	"github.com/lightlink-network/ll-withdrawal-engine/engine"
)

// API server
type Server struct {
	r      chi.Router
	log    *slog.Logger
	engine *engine.Engine
	db     *database.Database
	opts   ServerOpts
}

type ServerOpts struct {
	Logger *slog.Logger
	Engine *engine.Engine
	// Database backs the audit history endpoint; the protocol endpoints work
	// without it.
	Database *database.Database
	Port     string
}

// Create API server
func NewServer(opts ServerOpts) (*Server, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("api server requires an engine")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		r:      chi.NewRouter(),
		log:    opts.Logger,
		engine: opts.Engine,
		db:     opts.Database,
		opts:   opts,
	}
	s.routes()

	return s, nil
}

// Starts HTTP server
func (s *Server) StartServer() {
	s.log.Info("📡 Server Started. API Server is now listening on http://localhost:" + s.opts.Port)
	if err := http.ListenAndServe(":"+s.opts.Port, s.r); err != nil {
		s.log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// Turns server into http server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Returns JSON response to the API user. HTTP status code
// and data must be provided
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}

// Returns an error to the API user
func ERROR(w http.ResponseWriter, statusCode int, err error) {
	w.WriteHeader(statusCode)
	err = json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
	if err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}
