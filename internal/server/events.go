package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"katalog/internal/katalog"
)

var (
	scanJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "katalog_scan_jobs_total",
			Help: "Scan jobs that reached a terminal status.",
		},
		[]string{"status"},
	)
	scanFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "katalog_scan_files_total",
		Help: "Files written by finished scan jobs.",
	})
	scanBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "katalog_scan_bytes_total",
		Help: "Bytes of files written by finished scan jobs.",
	})
	scansRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "katalog_scans_running",
		Help: "Scan jobs currently running.",
	})
)

const keepAliveInterval = 15 * time.Second

// handleEvents streams scan events as server-sent events until the client
// disconnects or the service closes. Each event is sent as
// "event: <kind>\ndata: <json>\n\n".
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		writeError(w, r, fmt.Errorf("streaming not supported: %w", err))
		return
	}

	events, unsubscribe := s.svc.Subscribe()
	defer unsubscribe()

	ctx := r.Context()
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			rc.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("encoding event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
				return
			}
			rc.Flush()
		}
	}
}

// WatchScans feeds the scan metrics from the service's event stream until
// ctx ends or the service closes.
func WatchScans(ctx context.Context, svc *katalog.Service) {
	events, unsubscribe := svc.Subscribe()
	defer unsubscribe()
	watchScans(ctx, events)
}

func watchScans(ctx context.Context, events <-chan katalog.Event) {
	running := make(map[int64]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			recordScanEvent(running, ev)
		}
	}
}

func recordScanEvent(running map[int64]bool, ev katalog.Event) {
	switch ev.Kind {
	case katalog.EventProgress:
		if ev.Status == katalog.StatusRunning && !running[ev.JobID] {
			running[ev.JobID] = true
			scansRunning.Inc()
		}
	case katalog.EventFinished:
		if running[ev.JobID] {
			delete(running, ev.JobID)
			scansRunning.Dec()
		}
		scanJobsTotal.WithLabelValues(string(ev.Status)).Inc()
		scanFilesTotal.Add(float64(ev.Files))
		scanBytesTotal.Add(float64(ev.Bytes))
	}
}
