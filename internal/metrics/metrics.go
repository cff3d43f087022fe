package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payvia_operations_total",
		Help: "Ledger operations by name and outcome",
	},
	[]string{"operation", "outcome"},
)

// Record counts one invocation of operation. A nil err counts as success.
func Record(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// Handler exposes the default Prometheus registry over HTTP.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
