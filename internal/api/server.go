// Package api exposes the node's UI-facing entry points over HTTP:
// starting a connection, sending a message and reading the channel
// store, the boundary the web UI consumes.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dang1412/sui-chat/internal/chat"
)

// Resolver maps a contact name to a ledger address. Raw addresses pass
// through.
type Resolver interface {
	Resolve(nameOrAddress string) (string, bool)
}

// passthroughResolver accepts whatever it is given, for nodes running
// without a contact book.
type passthroughResolver struct{}

func (passthroughResolver) Resolve(s string) (string, bool) { return s, true }

type Options struct {
	Addr     string
	Manager  *chat.Manager
	Resolver Resolver
	Logger   *logrus.Logger
}

type Server struct {
	manager  *chat.Manager
	resolver Resolver
	log      *logrus.Logger
	http     *http.Server
}

func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = passthroughResolver{}
	}

	s := &Server{
		manager:  opts.Manager,
		resolver: resolver,
		log:      log,
	}

	router := mux.NewRouter()
	router.HandleFunc("/identity", s.handleIdentity).Methods(http.MethodGet)
	router.HandleFunc("/channels", s.handleChannels).Methods(http.MethodGet)
	router.HandleFunc("/channels/{peer}", s.handleChannel).Methods(http.MethodGet)
	router.HandleFunc("/channels/{peer}/select", s.handleSelect).Methods(http.MethodPost)
	router.HandleFunc("/connect", s.handleConnect).Methods(http.MethodPost)
	router.HandleFunc("/messages", s.handleSendMessage).Methods(http.MethodPost)

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() error {
	s.log.Infof("API listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"address": s.manager.Self()})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Snapshot())
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	peer := mux.Vars(r)["peer"]
	rec, ok := s.manager.Channel(peer)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown channel")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.manager.SelectChannel(mux.Vars(r)["peer"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Peer string `json:"peer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Peer == "" {
		writeError(w, http.StatusBadRequest, "peer is required")
		return
	}

	addr, ok := s.resolver.Resolve(req.Peer)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown peer")
		return
	}

	if err := s.manager.OfferConnect(addr); err != nil {
		s.log.Errorf("Offer connect to %s: %v", addr, err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"peer": addr})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Peer string `json:"peer"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Peer == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "peer and text are required")
		return
	}

	addr, ok := s.resolver.Resolve(req.Peer)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown peer")
		return
	}

	if err := s.manager.SendMessage(addr, req.Text); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
