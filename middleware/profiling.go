package middleware

import (
	"fmt"
	"os"

	"github.com/grafana/pyroscope-go"
)

var profiler *pyroscope.Profiler

// InitProfiling starts continuous profiling against the configured
// Pyroscope server.
func InitProfiling(serviceName, endpoint string) error {
	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: serviceName,
		ServerAddress:   endpoint,
		Logger:          nil,
		Tags:            map[string]string{"hostname": hostname()},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return fmt.Errorf("start pyroscope: %w", err)
	}
	profiler = p
	return nil
}

// StopProfiling flushes and stops the profiler.
func StopProfiling() {
	if profiler != nil {
		profiler.Stop()
		profiler = nil
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
