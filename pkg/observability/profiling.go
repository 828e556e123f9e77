package observability

import (
	"os"

	pyroscope "github.com/grafana/pyroscope-go"
)

// StartProfiling attaches the process to a Pyroscope server when
// PYROSCOPE_SERVER_ADDRESS is set; otherwise it is a no-op.
func StartProfiling(appName string) {
	addr := os.Getenv("PYROSCOPE_SERVER_ADDRESS")
	if addr == "" {
		return
	}

	_, _ = pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   addr,
		Logger:          nil,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
}
