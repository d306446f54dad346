package web

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/On-Jun9/ShutterOrient/internal/config"
	"github.com/On-Jun9/ShutterOrient/internal/pipeline"
)

type Server struct {
	router   *mux.Router
	hub      *Hub
	version  string
	pipeline *pipeline.Pipeline

	// runMu is held for the lifetime of a scan.
	runMu sync.Mutex
}

func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   mux.NewRouter(),
		hub:      NewHub(),
		version:  "unknown",
		pipeline: p,
	}

	go s.hub.Run()

	s.setupRoutes()
	return s, nil
}

func (s *Server) SetVersion(v string) {
	s.version = v
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/version", s.handleVersion).Methods("GET")
	api.HandleFunc("/orientation", s.handleOrientation).Methods("GET")
	api.HandleFunc("/scan", s.handleScan).Methods("POST")
	api.HandleFunc("/ws", s.handleWebSocket)

	// Fallback orientation index
	api.HandleFunc("/index", s.handleGetIndex).Methods("GET")
	api.HandleFunc("/index", s.handleSetIndex).Methods("POST")
	api.HandleFunc("/index", s.handleDeleteIndex).Methods("DELETE")
}

func (s *Server) Start(addr string) error {
	fmt.Printf("Starting ShutterOrient Web API at http://%s\n", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Close() error {
	if s.pipeline == nil {
		return nil
	}
	return s.pipeline.Close()
}
