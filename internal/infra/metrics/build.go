package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(buildInfo)
}

// buildInfo is always 1; the release shows up in its labels.
var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "filevault_build_info",
		Help: "Release of the running bot, labelled by version, commit and Go runtime.",
	},
	[]string{"version", "commit", "go_version"},
)

// SetBuildInfo publishes the release injected at link time. An empty commit
// is reported as "unknown".
func SetBuildInfo(version, commit string) {
	if commit == "" {
		commit = "unknown"
	}
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit, runtime.Version()).Set(1)
}
