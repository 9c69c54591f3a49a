// Package telemetry is the application side of the core boundary: it drains
// outbound messages, keeps a short history, streams it to HTTP clients and
// turns HTTP requests into inbound messages.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rjboer/GoBaseband/internal/logging"
	"github.com/rjboer/GoBaseband/internal/message"
	"github.com/rjboer/GoBaseband/internal/shared"
)

// Config holds the hub's own settings.
type Config struct {
	HistoryLimit int `json:"historyLimit"`
}

const (
	minHistoryLimit = 1
	maxHistoryLimit = 10_000

	minSamplingRate = 1_000
	maxSamplingRate = 20_000_000
)

func defaultConfig() Config {
	return Config{HistoryLimit: 500}
}

func validateConfig(cfg Config, base Config) (Config, error) {
	if base.HistoryLimit == 0 {
		base = defaultConfig()
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = base.HistoryLimit
	}
	if cfg.HistoryLimit < minHistoryLimit || cfg.HistoryLimit > maxHistoryLimit {
		return Config{}, fmt.Errorf("history limit must be between %d and %d", minHistoryLimit, maxHistoryLimit)
	}
	return cfg, nil
}

// validateBaseband checks a configuration request before it is queued. Unknown
// modes are allowed; the core treats them as idle.
func validateBaseband(cfg message.BasebandConfiguration) error {
	if cfg.SamplingRate != 0 && (cfg.SamplingRate < minSamplingRate || cfg.SamplingRate > maxSamplingRate) {
		return fmt.Errorf("sampling rate must be between %d and %d Hz", minSamplingRate, maxSamplingRate)
	}
	switch cfg.DecimationFactor {
	case 0, 4, 8, 16, 32:
	default:
		return errors.New("decimation factor must be 4, 8, 16 or 32")
	}
	return nil
}

// Event is one outbound message as kept in history and streamed to clients.
type Event struct {
	Timestamp time.Time       `json:"timestamp"`
	Kind      string          `json:"kind"`
	Payload   message.Message `json:"payload"`
}

// Reporter receives every event the hub handles.
type Reporter interface {
	Report(e Event)
}

// MultiReporter fans out events to multiple destinations.
type MultiReporter []Reporter

func (m MultiReporter) Report(e Event) {
	for _, r := range m {
		if r != nil {
			r.Report(e)
		}
	}
}

// Hub consumes the application queue, frees statistics slots and fans events
// out to subscribers.
type Hub struct {
	state    *shared.State
	reporter Reporter
	logger   logging.Logger

	mu          sync.RWMutex
	history     []Event
	config      Config
	spectrum    *message.ChannelSpectrum
	subscribers map[chan Event]struct{}
}

// NewHub builds a hub over state. reporter may be nil.
func NewHub(state *shared.State, historyLimit int, reporter Reporter, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	cfg := defaultConfig()
	if historyLimit > 0 {
		cfg.HistoryLimit = historyLimit
	}
	cfg, err := validateConfig(cfg, defaultConfig())
	if err != nil {
		logger.Warn("history limit rejected, using default", logging.Field{Key: "error", Value: err})
		cfg = defaultConfig()
	}
	return &Hub{
		state:       state,
		reporter:    reporter,
		logger:      logger.With(logging.Field{Key: "subsystem", Value: "telemetry"}),
		config:      cfg,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Run drains the application queue until ctx ends.
func (h *Hub) Run(ctx context.Context) error {
	for {
		m, err := h.state.Application.Pop(ctx)
		if err != nil {
			return err
		}
		h.Handle(m)
	}
}

// Handle consumes one outbound message.
func (h *Hub) Handle(m message.Message) {
	h.state.Release(m.ID())
	e := Event{Timestamp: time.Now(), Kind: m.ID().String(), Payload: m}

	h.mu.Lock()
	if s, ok := m.(message.ChannelSpectrum); ok {
		h.spectrum = &s
	}
	h.history = append(h.history, e)
	if len(h.history) > h.config.HistoryLimit {
		h.history = h.history[len(h.history)-h.config.HistoryLimit:]
	}
	for ch := range h.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
	h.mu.Unlock()

	if h.reporter != nil {
		h.reporter.Report(e)
	}
}

// History returns a copy of stored events.
func (h *Hub) History() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Event, len(h.history))
	copy(out, h.history)
	return out
}

// ConfigSnapshot returns the hub settings.
func (h *Hub) ConfigSnapshot() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Subscribe registers a listener for live events.
func (h *Hub) Subscribe() (chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		close(ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// Send queues an inbound message for the core.
func (h *Hub) Send(m message.Message) error {
	if err := h.state.Baseband.Push(m); err != nil {
		return fmt.Errorf("send %s: %w", m.ID(), err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Hub) queue(w http.ResponseWriter, m message.Message) {
	if err := h.Send(m); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, message.ErrQueueFull) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusAccepted, m)
}

func (h *Hub) handleHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.History())
}

func (h *Hub) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Configuration())
}

func (h *Hub) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var incoming message.BasebandConfiguration
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		http.Error(w, fmt.Sprintf("invalid config payload: %v", err), http.StatusBadRequest)
		return
	}
	if err := validateBaseband(incoming); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.queue(w, incoming)
}

func (h *Hub) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ConfigSnapshot())
}

func (h *Hub) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	var incoming Config
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		http.Error(w, fmt.Sprintf("invalid settings payload: %v", err), http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	cfg, err := validateConfig(incoming, h.config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.config = cfg
	if len(h.history) > cfg.HistoryLimit {
		h.history = h.history[len(h.history)-cfg.HistoryLimit:]
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Hub) handleGetSpectrum(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	s := h.spectrum
	h.mu.RUnlock()
	if s == nil {
		http.Error(w, "no spectrum yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// handleRequestSpectrum queues an UpdateSpectrum. An optional {"size": n}
// body changes the FFT size.
func (h *Hub) handleRequestSpectrum(w http.ResponseWriter, r *http.Request) {
	var m message.UpdateSpectrum
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			http.Error(w, fmt.Sprintf("invalid spectrum payload: %v", err), http.StatusBadRequest)
			return
		}
	}
	h.queue(w, m)
}

// commands maps the path segment of /api/command/{kind} to the inbound
// message it decodes into.
var commands = map[string]func() any{
	"fsk":      func() any { return &message.FSKConfigure{} },
	"beep":     func() any { return &message.AudioBeep{} },
	"signal":   func() any { return &message.RequestSignal{} },
	"pitch":    func() any { return &message.PitchRSSIConfigure{} },
	"capture":  func() any { return &message.CaptureConfig{} },
	"rate":     func() any { return &message.SampleRateConfig{} },
	"fifo":     func() any { return &message.FIFOData{} },
	"rds":      func() any { return &message.RDSData{} },
	"lcr":      func() any { return &message.LCRConfigure{} },
	"xylos":    func() any { return &message.XylosConfigure{} },
	"jammer":   func() any { return &message.JammerConfigure{} },
	"beacon":   func() any { return &message.BeaconConfigure{} },
	"shutdown": func() any { return &message.Shutdown{} },
}

func (h *Hub) handleCommand(w http.ResponseWriter, r *http.Request) {
	build, ok := commands[r.PathValue("kind")]
	if !ok {
		http.Error(w, "unknown command", http.StatusNotFound)
		return
	}
	v := build()
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			http.Error(w, fmt.Sprintf("invalid command payload: %v", err), http.StatusBadRequest)
			return
		}
	}
	h.queue(w, deref(v))
}

// deref turns the decoded pointer back into the value message type.
func deref(v any) message.Message {
	switch m := v.(type) {
	case *message.FSKConfigure:
		return *m
	case *message.AudioBeep:
		return *m
	case *message.RequestSignal:
		return *m
	case *message.PitchRSSIConfigure:
		return *m
	case *message.CaptureConfig:
		return *m
	case *message.SampleRateConfig:
		return *m
	case *message.FIFOData:
		return *m
	case *message.RDSData:
		return *m
	case *message.LCRConfigure:
		return *m
	case *message.XylosConfigure:
		return *m
	case *message.JammerConfigure:
		return *m
	case *message.BeaconConfigure:
		return *m
	default:
		return message.Shutdown{}
	}
}

func (h *Hub) handleLive(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := h.Subscribe()
	defer cancel()

	// send existing history for immediate display
	for _, e := range h.History() {
		writeEvent(w, e)
	}
	flusher.Flush()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, e)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, e Event) {
	payload, _ := json.Marshal(e)
	w.Write([]byte("event: " + e.Kind + "\ndata: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
}

// Handler returns the HTTP routes of the hub.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/history", h.handleHistory)
	mux.HandleFunc("GET /api/live", h.handleLive)
	mux.HandleFunc("GET /api/config", h.handleGetConfig)
	mux.HandleFunc("POST /api/config", h.handleSetConfig)
	mux.HandleFunc("GET /api/settings", h.handleGetSettings)
	mux.HandleFunc("POST /api/settings", h.handleSetSettings)
	mux.HandleFunc("GET /api/spectrum", h.handleGetSpectrum)
	mux.HandleFunc("POST /api/spectrum", h.handleRequestSpectrum)
	mux.HandleFunc("POST /api/command/{kind}", h.handleCommand)
	return mux
}
