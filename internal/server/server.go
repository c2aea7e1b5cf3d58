// Package server exposes the daemon's configuration surface as HTTP/JSON.
// Handlers are thin adapters over the profile store, engine and device
// adapter; those operations are concurrency-safe on their own, so no
// handler holds any lock itself.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/padworks/padmapper/internal/device"
	"github.com/padworks/padmapper/internal/engine"
	"github.com/padworks/padmapper/internal/profile"
	"github.com/padworks/padmapper/internal/store"
)

const maxBodyBytes = 1 << 20

// Server wires the HTTP surface to the running daemon.
type Server struct {
	log     *zap.Logger
	adapter *device.Adapter
	engine  *engine.Engine
	pads    *profile.Store
	library *store.Library

	httpServer *http.Server
}

func New(log *zap.Logger, adapter *device.Adapter, eng *engine.Engine, pads *profile.Store, library *store.Library) *Server {
	return &Server{
		log:     log.Named("server"),
		adapter: adapter,
		engine:  eng,
		pads:    pads,
		library: library,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/ports", s.handlePorts)
	mux.HandleFunc("POST /api/connect", s.handleConnect)
	mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/stop", s.handleStop)

	mux.HandleFunc("GET /api/profile", s.handleExportProfile)
	mux.HandleFunc("PUT /api/profile", s.handleImportProfile)
	mux.HandleFunc("GET /api/profiles", s.handleListProfiles)
	mux.HandleFunc("POST /api/profiles/activate", s.handleActivateProfile)
	mux.HandleFunc("DELETE /api/profiles/{name}", s.handleDeleteProfile)

	mux.HandleFunc("PUT /api/mapping", s.handleUpsertMapping)
	mux.HandleFunc("DELETE /api/mapping", s.handleDeleteMapping)

	mux.HandleFunc("POST /api/layer", s.handleLayer)
	mux.HandleFunc("POST /api/emulate", s.handleEmulate)
	mux.HandleFunc("POST /api/color", s.handleColor)
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, listen string) error {
	s.httpServer = &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	s.log.Info("listening", zap.String("addr", listen))
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errc:
		return err
	}
}

type statusResponse struct {
	Status     string   `json:"status"`
	Profile    string   `json:"profile"`
	LayerIndex int      `json:"layer_index"`
	Layer      string   `json:"layer"`
	Layers     []string `json:"layers"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	idx, name := s.pads.ActiveLayer()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:     s.engine.State().Status().String(),
		Profile:    s.library.ActiveName(),
		LayerIndex: idx,
		Layer:      name,
		Layers:     s.pads.LayerNames(),
	})
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"inputs":  s.adapter.ListInputs(),
		"outputs": s.adapter.ListOutputs(),
	})
}

type connectRequest struct {
	InPort  string `json:"in_port"`
	OutPort string `json:"out_port"`
	Model   string `json:"model"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.InPort == "" {
		if name, ok := device.AutoPick(s.adapter.ListInputs()); ok {
			req.InPort = name
		}
	}
	if req.OutPort == "" {
		if name, ok := device.AutoPick(s.adapter.ListOutputs()); ok {
			req.OutPort = name
		}
	}
	if req.InPort == "" || req.OutPort == "" {
		writeError(w, http.StatusBadRequest, "no controller port found")
		return
	}

	if err := s.adapter.Connect(r.Context(), req.InPort, req.OutPort, device.ModelName(req.Model)); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if err := s.adapter.Listen(s.engine.OnNoteEvent); err != nil {
		s.adapter.Disconnect()
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.engine.State().Connect()
	s.log.Info("device connected", zap.String("in", req.InPort), zap.String("out", req.OutPort))
	s.handleStatus(w, r)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop()
	s.engine.State().Disconnect()
	s.adapter.Disconnect()
	s.handleStatus(w, r)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Start(); err != nil {
		code := http.StatusConflict
		if errors.Is(err, engine.ErrNotConnected) {
			code = http.StatusPreconditionFailed
		}
		writeError(w, code, err.Error())
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop()
	s.handleStatus(w, r)
}

func (s *Server) handleExportProfile(w http.ResponseWriter, r *http.Request) {
	data, err := profile.Export(s.pads.Snapshot())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImportProfile(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := profile.Import(data)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	if err := s.pads.ReplaceProfile(p); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := s.library.Put(p); err != nil {
		writeValidationError(w, err)
		return
	}
	if _, err := s.library.SetActive(p.Name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":   s.library.ActiveName(),
		"profiles": s.library.Names(),
	})
}

type activateRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if !readJSON(w, r, &req) {
		return
	}
	// Persist edits to the outgoing profile before switching.
	if err := s.library.Put(s.pads.Snapshot()); err != nil {
		writeValidationError(w, err)
		return
	}
	p, err := s.library.SetActive(req.Name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.pads.ReplaceProfile(p); err != nil {
		writeValidationError(w, err)
		return
	}
	s.handleStatus(w, r)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.library.Delete(r.PathValue("name")); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mappingRequest struct {
	Layer   string          `json:"layer"`
	Coord   string          `json:"coord"`
	Mapping json.RawMessage `json:"mapping"`
}

func (s *Server) handleUpsertMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if !readJSON(w, r, &req) {
		return
	}
	coord, err := device.ParseCoordinate(req.Coord)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := profile.ImportMapping(req.Mapping)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	if err := s.pads.UpsertMapping(req.Layer, coord, m); err != nil {
		writeValidationError(w, err)
		return
	}
	s.persistPads(w, r)
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	layer := r.URL.Query().Get("layer")
	coord, err := device.ParseCoordinate(r.URL.Query().Get("coord"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.pads.DeleteMapping(layer, coord)
	s.persistPads(w, r)
}

func (s *Server) persistPads(w http.ResponseWriter, r *http.Request) {
	if err := s.library.Put(s.pads.Snapshot()); err != nil {
		writeValidationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type layerRequest struct {
	Action string `json:"action"` // set, push, pop
	Name   string `json:"name,omitempty"`
	Index  *int   `json:"index,omitempty"`
}

func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request) {
	var req layerRequest
	if !readJSON(w, r, &req) {
		return
	}
	switch req.Action {
	case "set":
		idx := 0
		if req.Index != nil {
			idx = *req.Index
		} else if req.Name != "" {
			idx = s.pads.Snapshot().LayerIndex(req.Name)
		}
		if err := s.pads.SetLayer(idx); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	case "push":
		s.pads.PushLayer(req.Name)
	case "pop":
		s.pads.PopLayer()
	default:
		writeError(w, http.StatusBadRequest, "action must be set, push or pop")
		return
	}
	s.handleStatus(w, r)
}

type emulateRequest struct {
	Coord    string `json:"coord"`
	Velocity uint8  `json:"velocity"`
	Press    bool   `json:"press"`
}

// handleEmulate injects a synthetic pad event, for exercising mappings
// without hardware attached.
func (s *Server) handleEmulate(w http.ResponseWriter, r *http.Request) {
	var req emulateRequest
	if !readJSON(w, r, &req) {
		return
	}
	coord, err := device.ParseCoordinate(req.Coord)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.engine.OnNoteEvent(device.Event{Coord: coord, Velocity: req.Velocity, Press: req.Press})
	w.WriteHeader(http.StatusAccepted)
}

type colorRequest struct {
	Coord string `json:"coord"`
	Color string `json:"color"`
}

func (s *Server) handleColor(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if !readJSON(w, r, &req) {
		return
	}
	coord, err := device.ParseCoordinate(req.Coord)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !device.IsValidColor(req.Color) {
		writeError(w, http.StatusBadRequest, "unknown color "+req.Color)
		return
	}
	if err := s.adapter.SetPadColor(coord, req.Color); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *profile.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
