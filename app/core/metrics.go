package core

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medqa-ai/medqa/pkg/metrics"
)

type Metrics struct {
	apiResponseTime  *prometheus.HistogramVec
	apiErrorCounter  *prometheus.CounterVec
	chatResponseTime *prometheus.HistogramVec
	generateRetry    *prometheus.CounterVec
	degradedCounter  *prometheus.CounterVec
	retrievalTime    *prometheus.HistogramVec
}

func NewMetrics(ns, system string) *Metrics {
	// setup metric
	metrics.SetupMetricsManager(ns, system, prometheus.DefaultRegisterer.(*prometheus.Registry))

	m := &Metrics{
		apiResponseTime:  metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:  metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		chatResponseTime: metrics.NewHistogramVec("chat_response_time", nil),
		generateRetry:    metrics.NewCounterVec("generate_retry", []string{"attempt"}),
		degradedCounter:  metrics.NewCounterVec("answer_degraded", []string{"reason"}),
		retrievalTime:    metrics.NewHistogramVec("retrieval_time", []string{"adapter"}),
	}

	return m
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

func (m *Metrics) ChatResponseTimer() *prometheus.Timer {
	return prometheus.NewTimer(m.chatResponseTime.WithLabelValues())
}

func (m *Metrics) GenerateRetryInc(attempt int) {
	m.generateRetry.WithLabelValues(strconv.Itoa(attempt)).Inc()
}

func (m *Metrics) DegradedInc(reason string) {
	m.degradedCounter.WithLabelValues(reason).Inc()
}

func (m *Metrics) RetrievalObserve(adapter string, cost time.Duration) {
	m.retrievalTime.WithLabelValues(adapter).Observe(cost.Seconds())
}
