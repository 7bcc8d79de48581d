package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/saythanks/mobile-harness/types"
)

// StateProvider reports the current state of the run.
type StateProvider interface {
	State() types.RunState
}

// StatusResponse is the body served on /status.
type StatusResponse struct {
	State    types.RunState `json:"state"`
	Terminal bool           `json:"terminal"`
}

type HealthzServer struct {
	server *http.Server
	state  StateProvider
	log    log.Logger
}

// NewHealthzServer creates the server for addr. It does not listen until Start.
func NewHealthzServer(logger log.Logger, state StateProvider, addr string) *HealthzServer {
	if logger == nil {
		logger = log.Root()
	}
	h := &HealthzServer{log: logger, state: state}
	h.server = &http.Server{
		Handler: h.Handler(),
		Addr:    addr,
	}
	return h
}

// Handler returns the router serving /healthz and /status.
func (h *HealthzServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Handle).Methods(http.MethodGet)
	r.HandleFunc("/status", h.HandleStatus).Methods(http.MethodGet)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(r)
}

// Start blocks serving until Shutdown. After Shutdown it returns
// http.ErrServerClosed without listening.
func (h *HealthzServer) Start() error {
	return h.server.ListenAndServe()
}

func (h *HealthzServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.server.Shutdown(ctx)
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	h.log.Debug("Received health check request", "path", r.URL.Path)
	w.Write([]byte("OK")) //nolint:errcheck
}

func (h *HealthzServer) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{State: types.RunStateInit}
	if h.state != nil {
		resp.State = h.state.State()
	}
	resp.Terminal = resp.State.Terminal()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("failed to write status response", "err", err)
	}
}
