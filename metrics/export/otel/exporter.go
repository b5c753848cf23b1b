// Package otel bridges authcore metric snapshots onto OpenTelemetry
// observable instruments. Every metric in the internaldefs naming tables
// becomes one instrument; a single registered callback reads one snapshot
// per collection and fans it out.
package otel

import (
	"context"
	"errors"
	"fmt"

	authcore "github.com/ledgersec/authcore"
	"github.com/ledgersec/authcore/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
}

// observation pairs an instrument with the function that reads its value
// out of a snapshot. The callback walks this plan so instrument creation
// and collection cannot drift apart.
type observation struct {
	instrument metric.Int64Observable
	read       func(authcore.MetricsSnapshot) int64
}

type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	plan         []observation
}

// NewOTelExporter registers observable instruments for every authcore
// metric on the given meter, reading from the engine.
func NewOTelExporter(meter metric.Meter, engine *authcore.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter over a custom snapshot
// source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{source: source}

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		id := def.ID
		exporter.plan = append(exporter.plan, observation{
			instrument: ins,
			read: func(s authcore.MetricsSnapshot) int64 {
				return int64(s.Counters[id])
			},
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		id := def.ID
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
			if err != nil {
				return nil, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
			}
			bucket := i
			exporter.plan = append(exporter.plan, observation{
				instrument: ins,
				read: func(s authcore.MetricsSnapshot) int64 {
					cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(s.Histograms[id]))
					return int64(cumulative[bucket])
				},
			})
		}
		countName := def.Name + "_count"
		countIns, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
		if err != nil {
			return nil, fmt.Errorf("create histogram count gauge %s: %w", countName, err)
		}
		exporter.plan = append(exporter.plan, observation{
			instrument: countIns,
			read: func(s authcore.MetricsSnapshot) int64 {
				cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(s.Histograms[id]))
				return int64(cumulative[len(cumulative)-1])
			},
		})
	}

	observables := make([]metric.Observable, 0, len(exporter.plan))
	for _, obs := range exporter.plan {
		observables = append(observables, obs.instrument)
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, obs := range exporter.plan {
			observer.ObserveInt64(obs.instrument, obs.read(snapshot))
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
