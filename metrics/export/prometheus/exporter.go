// Package prometheus renders authcore metric snapshots in the Prometheus
// text exposition format without pulling in the prometheus client library.
// The engine's lock-free counters stay the single source of truth and the
// exporter is a pure read-side view over one snapshot per scrape.
package prometheus

import (
	"fmt"
	"net/http"
	"strings"

	authcore "github.com/ledgersec/authcore"
	"github.com/ledgersec/authcore/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
}

// PrometheusExporter renders authcore metrics for scraping.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates an exporter that reads from the given
// [authcore.Engine].
func NewPrometheusExporter(engine *authcore.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates an exporter over a custom
// snapshot source, typically for tests.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves the current snapshot.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render takes one snapshot and formats every metric the naming tables
// know about. Counters absent from the snapshot render as zero so the
// scrape surface is stable across restarts.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		writeHeader(&b, def.Name, def.Help, "counter")
		fmt.Fprintf(&b, "%s %d\n", def.Name, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		writeHeader(&b, def.Name, def.Help, "histogram")
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		for i, le := range internaldefs.HistogramBounds {
			fmt.Fprintf(&b, "%s_bucket{le=%q} %d\n", def.Name, le, cumulative[i])
		}
		fmt.Fprintf(&b, "%s_count %d\n", def.Name, cumulative[len(cumulative)-1])
		// Core snapshots carry bucket counts only, not a running sum.
		fmt.Fprintf(&b, "%s_sum 0\n", def.Name)
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, escapeHelp(help))
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
