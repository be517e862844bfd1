package matrix

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// JobMetric captures one executed test/compiler pairing.
type JobMetric struct {
	TestName        string
	CompilerDisplay string
	Stage           string
	Passed          bool
	APIError        bool
	Duration        time.Duration
	Timestamp       time.Time
}

// RunSummary aggregates a finished matrix run.
type RunSummary struct {
	TotalDuration time.Duration
	ExecutedJobs  int
	PassedJobs    int
	FailedJobs    int
	ReusedResults int
	APIErrors     int
	StageFailures map[string]int
}

// Collector accumulates per-job metrics during a run.
type Collector interface {
	Start(ctx context.Context) error
	Stop() error
	RecordJob(metric JobMetric)
	RecordReuse()
	JobMetrics() []JobMetric
	Summary() RunSummary
}

type collector struct {
	log        logrus.FieldLogger
	mu         sync.RWMutex
	jobMetrics []JobMetric
	reused     int
	startTime  time.Time
}

// NewCollector creates a run metrics collector.
func NewCollector(log logrus.FieldLogger) Collector {
	return &collector{
		log:        log.WithField("component", "metrics_collector"),
		jobMetrics: make([]JobMetric, 0, 50),
	}
}

func (c *collector) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()

	c.log.Debug("metrics collector started")

	return nil
}

func (c *collector) Stop() error {
	c.log.Debug("metrics collector stopped")

	return nil
}

func (c *collector) RecordJob(metric JobMetric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobMetrics = append(c.jobMetrics, metric)
}

func (c *collector) RecordReuse() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reused++
}

func (c *collector) JobMetrics() []JobMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]JobMetric, len(c.jobMetrics))
	copy(result, c.jobMetrics)

	return result
}

func (c *collector) Summary() RunSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := RunSummary{
		TotalDuration: time.Since(c.startTime),
		ExecutedJobs:  len(c.jobMetrics),
		ReusedResults: c.reused,
		StageFailures: make(map[string]int),
	}

	for _, m := range c.jobMetrics {
		if m.Passed {
			summary.PassedJobs++
		} else {
			summary.FailedJobs++
			summary.StageFailures[m.Stage]++
		}

		if m.APIError {
			summary.APIErrors++
		}
	}

	return summary
}

var _ Collector = (*collector)(nil)
