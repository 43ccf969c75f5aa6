package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/louisbranch/addon-demo/internal/platform/config"
	"github.com/louisbranch/addon-demo/internal/platform/httpx"
	"github.com/louisbranch/addon-demo/internal/platform/procmem"
)

type endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var endpoints = []endpoint{
	{Method: http.MethodGet, Path: "/api/health", Description: "Health check"},
	{Method: http.MethodGet, Path: "/api/info", Description: "Application and add-on information"},
	{Method: http.MethodGet, Path: "/api/stats", Description: "Page view statistics (PostgreSQL)"},
	{Method: http.MethodGet, Path: "/api/cache/test", Description: "Cache counter (Redis)"},
	{Method: http.MethodGet, Path: "/api/summary", Description: "Daily summary generated by the worker"},
	{Method: http.MethodPost, Path: "/api/log", Description: "Emit a log line (log drain)"},
	{Method: http.MethodPost, Path: "/api/crash", Description: "Crash the process (H10)"},
	{Method: http.MethodPost, Path: "/api/timeout", Description: "Hold the request open (H12)"},
	{Method: http.MethodPost, Path: "/api/memory-leak", Description: "Grow memory (R14)"},
	{Method: http.MethodPost, Path: "/api/cpu-intensive", Description: "Saturate one CPU"},
	{Method: http.MethodGet, Path: "/metrics", Description: "Prometheus metrics"},
}

type indexResponse struct {
	App         string             `json:"app"`
	Environment string             `json:"environment"`
	Addons      config.AddonStatus `json:"addons"`
	Endpoints   []endpoint         `json:"endpoints"`
}

type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      float64   `json:"uptime"`
	Environment string    `json:"environment"`
}

type infoResponse struct {
	App              string             `json:"app"`
	Version          string             `json:"version"`
	DeploymentMethod string             `json:"deploymentMethod"`
	Go               string             `json:"go"`
	Platform         string             `json:"platform"`
	Memory           procmem.Human      `json:"memory"`
	Addons           config.AddonStatus `json:"addons"`
	Timestamp        time.Time          `json:"timestamp"`
}

func (h handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, indexResponse{
		App:         h.cfg.Addons.AppName,
		Environment: h.cfg.Addons.Environment,
		Addons:      h.cfg.Addons.Status(),
		Endpoints:   endpoints,
	})
}

func (h handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.cfg.Started).Seconds(),
		Environment: h.cfg.Addons.Environment,
	})
}

func (h handlers) handleInfo(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, infoResponse{
		App:              h.cfg.Addons.AppName,
		Version:          Version,
		DeploymentMethod: DeploymentMethod,
		Go:               runtime.Version(),
		Platform:         runtime.GOOS,
		Memory:           procmem.Read(r.Context()).Human(),
		Addons:           h.cfg.Addons.Status(),
		Timestamp:        time.Now().UTC(),
	})
}

func (h handlers) handleNotFound(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusNotFound, map[string]string{
		"error": "Not Found",
		"path":  r.URL.Path,
	})
}
