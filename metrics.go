package f1bot

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "f1bot",
		Name:      "commands_total",
		Help:      "Commands handled, by command and result.",
	}, []string{"command", "result"})

	commandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "f1bot",
		Name:      "command_duration_seconds",
		Help:      "Time taken to handle a command.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(commandsTotal, commandDuration)
}

const (
	resultOK      = "ok"
	resultUsage   = "usage"
	resultError   = "error"
	resultTimeout = "timeout"
)
