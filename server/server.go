// Package server exposes the tag writer over HTTP and WebSocket, with mDNS
// auto-discovery for clients on the local network.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"

	"github.com/dotside-studios/taglink/buildinfo"
	"github.com/dotside-studios/taglink/ndef"
	"github.com/dotside-studios/taglink/nfc"
	"github.com/dotside-studios/taglink/protocol"
)

const (
	mdnsServiceType = "_taglink._tcp"
	mdnsDomain      = "local."
)

// Config holds the server configuration.
type Config struct {
	Writer      *nfc.Writer
	Port        int
	DisableMDNS bool
}

// Server manages the HTTP and WebSocket server.
type Server struct {
	config     Config
	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc

	// writeMu serializes tag writes: a write owns the reader for its whole
	// card session.
	writeMu sync.Mutex

	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	upgrader   websocket.Upgrader

	mdnsServer *zeroconf.Server
}

// New creates a new server instance.
func New(config Config) *Server {
	return &Server{
		config:  config,
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
	}
}

// Handler returns the HTTP handler with all routes attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	apiV1 := "/api/v1"

	mux.HandleFunc(apiV1+"/health", enableCORS(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleHealth(w, r)
	}))

	mux.HandleFunc(apiV1+"/write", enableCORS(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleWrite(w, r)
	}))

	mux.HandleFunc("/ws", enableCORS(s.handleWebSocket))

	mux.HandleFunc("/", enableCORS(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(buildinfo.DisplayName + " Running"))
	}))

	return mux
}

// Start starts the HTTP server and blocks until Stop is called or the
// listener fails.
func (s *Server) Start() error {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.Handler(),
	}

	if !s.config.DisableMDNS {
		if err := s.startMDNS(); err != nil {
			log.Warn().Err(err).Msg("mDNS registration failed, auto-discovery unavailable")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-s.ctx.Done():
		return nil
	}
}

// Stop stops the HTTP server gracefully.
func (s *Server) Stop() {
	if s.mdnsServer != nil {
		s.mdnsServer.Shutdown()
		s.mdnsServer = nil
		log.Info().Msg("mDNS service stopped")
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
		s.httpServer = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// startMDNS registers the agent as an mDNS service for auto-discovery.
func (s *Server) startMDNS() error {
	txtRecords := []string{
		"version=" + buildinfo.Version,
		"protocol=websocket",
		"path=/ws",
	}

	server, err := zeroconf.Register(buildinfo.DisplayName, mdnsServiceType, mdnsDomain, s.config.Port, txtRecords, nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}

	s.mdnsServer = server
	log.Info().Str("service", mdnsServiceType).Int("port", s.config.Port).Msg("mDNS service registered")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"name":    buildinfo.Name,
		"version": buildinfo.FullVersion(),
	})
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req protocol.WriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.WriteResponse{
			Error:     "invalid request body",
			ErrorCode: protocol.ErrCodeInvalidRequest,
		})
		return
	}

	resp, status := s.doWrite(req.URL)
	writeJSON(w, status, resp)
}

// doWrite performs one serialized tag write and maps the result to a wire
// response plus HTTP status.
func (s *Server) doWrite(url string) (protocol.WriteResponse, int) {
	if url == "" {
		return protocol.WriteResponse{
			Error:     "url is required",
			ErrorCode: protocol.ErrCodeInvalidRequest,
		}, http.StatusBadRequest
	}

	s.writeMu.Lock()
	err := s.config.Writer.WriteURL(url)
	s.writeMu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("tag write failed")
		resp := protocol.WriteResponse{
			URL:       url,
			Error:     err.Error(),
			ErrorCode: errorCodeFor(err),
		}
		return resp, httpStatusFor(resp.ErrorCode)
	}

	s.broadcastWriteEvent(url)
	return protocol.WriteResponse{Success: true, URL: url}, http.StatusOK
}

// errorCodeFor maps writer errors to wire error codes.
func errorCodeFor(err error) string {
	var sizeErr *ndef.PayloadSizeError
	var writeErr *nfc.WriteError

	switch {
	case errors.As(err, &sizeErr):
		return protocol.ErrCodePayloadTooLarge
	case nfc.IsReaderNotFoundError(err):
		return protocol.ErrCodeReaderNotFound
	case nfc.IsCardTimeoutError(err):
		return protocol.ErrCodeCardTimeout
	case errors.As(err, &writeErr):
		return protocol.ErrCodeWriteFailed
	default:
		return protocol.ErrCodeInternal
	}
}

func httpStatusFor(code string) int {
	switch code {
	case protocol.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case protocol.ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case protocol.ErrCodeReaderNotFound:
		return http.StatusServiceUnavailable
	case protocol.ErrCodeCardTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// enableCORS is a middleware that adds CORS headers to responses.
func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}
