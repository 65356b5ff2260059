package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DevicesDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pansmart_devices_discovered",
		Help: "Number of supported devices found on the cloud account.",
	})

	RefreshTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pansmart_status_refresh_total",
		Help: "Device status refresh calls issued.",
	})

	RefreshErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pansmart_status_refresh_errors_total",
		Help: "Device status refresh calls that failed.",
	})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pansmart_commands_total",
		Help: "Commands received over MQTT, by entity kind.",
	}, []string{"kind"})

	CommandErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pansmart_command_errors_total",
		Help: "Commands that failed to reach the cloud.",
	})
)
