package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics holds the low-cardinality server instruments. Endpoint
// labels use the gin route template, never the raw URL, so tenant and
// plan identifiers stay out of the label set.
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	inFlight        metric.Int64UpDownCounter
}

// NewHTTPMetrics creates the request duration and in-flight instruments.
func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "uniqbrio"
	}
	meter := provider.Meter(name + "/http")

	duration, err := meter.Float64Histogram("http.server.duration_ms")
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http.server.in_flight")
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{requestDuration: duration, inFlight: inFlight}, nil
}

// GinMiddleware tracks in-flight requests and records one duration
// sample per request, labelled by route, method and status.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx := c.Request.Context()
		routeAttrs := metric.WithAttributes(FilterAttributes(
			attribute.String("endpoint", route),
		)...)

		m.inFlight.Add(ctx, 1, routeAttrs)
		start := time.Now()
		c.Next()
		m.inFlight.Add(ctx, -1, routeAttrs)

		m.requestDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(FilterAttributes(
				attribute.String("endpoint", route),
				attribute.String("method", c.Request.Method),
				attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
			)...))
	}
}
