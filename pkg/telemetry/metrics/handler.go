package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxScrapesInFlight bounds concurrent scrapes of the collector registry.
const maxScrapesInFlight = 4

// Handler serves the collector's registry in the Prometheus exposition
// format. Scrapes are themselves counted in
// promhttp_metric_handler_requests_total on the same registry, and
// collection errors are reported without failing the whole scrape.
//
//	mux.Handle(cfg.Path, collector.Handler())
func (c *Collector) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			Registry:            c.registry,
			EnableOpenMetrics:   true,
			ErrorHandling:       promhttp.ContinueOnError,
			MaxRequestsInFlight: maxScrapesInFlight,
		},
	))
}
