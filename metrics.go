// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/nativesim/go-guestdl/errors"
)

// Stats stores the metrics collected by a Loader.
type Stats struct {
	// Timers returns the time spent in each loader phase.
	Timers map[string]time.Duration

	// Loads is the number of successful loads.
	Loads uint64

	// Resolves is the number of successful symbol resolutions.
	Resolves uint64

	// Failures counts failed calls by status.
	Failures map[errors.Status]uint64
}

const (
	phaseAdmit  = "admit"
	phaseMap    = "map"
	phaseDlopen = "dlopen"
	phaseDlsym  = "dlsym"
)

const metricsPrefix = "guestdl"

// Metrics flattens the stats into key value metrics. Durations are reported
// in microseconds.
func (stats Stats) Metrics() map[string]any {
	tags := make(map[string]any, len(stats.Timers)+len(stats.Failures)+2)
	for k, v := range stats.Timers {
		tags[key(k)] = float64(v.Nanoseconds()) / float64(time.Microsecond)
	}

	tags[key("loads")] = stats.Loads
	tags[key("resolves")] = stats.Resolves

	for status, count := range stats.Failures {
		tags[fmt.Sprintf("%s.%d", key("failures"), int32(status))] = count
	}

	return tags
}

func key(component string) string {
	return fmt.Sprintf("%s.%s", metricsPrefix, component)
}

type metricsStore struct {
	mutex    sync.Mutex
	timers   map[string]time.Duration
	loads    uint64
	resolves uint64
	failures map[errors.Status]uint64
}

// since records the time elapsed since start under phase.
func (metrics *metricsStore) since(phase string, start time.Time) {
	elapsed := time.Since(start)

	metrics.mutex.Lock()
	defer metrics.mutex.Unlock()
	if metrics.timers == nil {
		metrics.timers = make(map[string]time.Duration, 4)
	}
	metrics.timers[phase] += elapsed
}

func (metrics *metricsStore) loaded() {
	metrics.mutex.Lock()
	defer metrics.mutex.Unlock()
	metrics.loads++
}

func (metrics *metricsStore) resolved() {
	metrics.mutex.Lock()
	defer metrics.mutex.Unlock()
	metrics.resolves++
}

func (metrics *metricsStore) failed(status errors.Status) {
	metrics.mutex.Lock()
	defer metrics.mutex.Unlock()
	if metrics.failures == nil {
		metrics.failures = make(map[errors.Status]uint64, 4)
	}
	metrics.failures[status]++
}

func (metrics *metricsStore) stats() Stats {
	metrics.mutex.Lock()
	defer metrics.mutex.Unlock()
	return Stats{
		Timers:   maps.Clone(metrics.timers),
		Loads:    metrics.loads,
		Resolves: metrics.resolves,
		Failures: maps.Clone(metrics.failures),
	}
}
