// Package health reports a runtime snapshot of the inference service.
package health

import (
	"runtime"
	"time"
)

// Options describes the process being reported on.
type Options struct {
	Started     time.Time
	Provider    string
	TextModel   string
	VisionModel string
}

// Snapshot is the health report served at /healthz.
type Snapshot struct {
	Status     string       `json:"status"`
	Uptime     string       `json:"uptime,omitempty"`
	Goroutines int          `json:"goroutines"`
	Memory     MemoryInfo   `json:"memory"`
	Runtime    RuntimeInfo  `json:"runtime"`
	Backend    *BackendInfo `json:"backend,omitempty"`
	Timestamp  string       `json:"timestamp"`
}

type MemoryInfo struct {
	AllocMB      float64 `json:"allocMB"`
	TotalAllocMB float64 `json:"totalAllocMB"`
	SysMB        float64 `json:"sysMB"`
	NumGC        uint32  `json:"numGC"`
}

type RuntimeInfo struct {
	Version string `json:"version"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	CPUs    int    `json:"cpus"`
}

// BackendInfo names the provider and models answering prompts.
type BackendInfo struct {
	Provider    string `json:"provider"`
	TextModel   string `json:"textModel,omitempty"`
	VisionModel string `json:"visionModel,omitempty"`
}

// Collect returns a health snapshot for the current process.
func Collect(opts Options) Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := time.Now()
	s := Snapshot{
		Status:     "healthy",
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryInfo{
			AllocMB:      float64(mem.Alloc) / 1024 / 1024,
			TotalAllocMB: float64(mem.TotalAlloc) / 1024 / 1024,
			SysMB:        float64(mem.Sys) / 1024 / 1024,
			NumGC:        mem.NumGC,
		},
		Runtime: RuntimeInfo{
			Version: runtime.Version(),
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
			CPUs:    runtime.NumCPU(),
		},
		Timestamp: now.Format(time.RFC3339),
	}

	if !opts.Started.IsZero() {
		s.Uptime = now.Sub(opts.Started).Truncate(time.Second).String()
	}
	if opts.Provider != "" {
		s.Backend = &BackendInfo{
			Provider:    opts.Provider,
			TextModel:   opts.TextModel,
			VisionModel: opts.VisionModel,
		}
	}
	return s
}
