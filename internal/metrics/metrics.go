package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	modelLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentcore_model_call_latency_ms",
		Help:    "Latency of model provider calls in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000, 60000},
	}, []string{"provider", "model"})

	modelCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentcore_model_calls_total",
		Help: "Model provider calls by outcome",
	}, []string{"provider", "model", "outcome"})

	modelTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentcore_model_tokens_total",
		Help: "Tokens reported by providers",
	}, []string{"provider", "model", "direction"})

	modelCost = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentcore_model_cost_usd_total",
		Help: "Estimated model spend in USD",
	}, []string{"model"})

	agentRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentcore_agent_runs_total",
		Help: "Agent invocations by outcome",
	}, []string{"agent", "operation", "outcome"})

	orchestrations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agentcore_orchestration_latency_ms",
		Help:    "End to end orchestration latency in milliseconds",
		Buckets: []float64{250, 500, 1000, 2000, 4000, 8000, 15000, 30000, 60000, 120000},
	}, []string{"workflow", "outcome"})

	memoryOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentcore_memory_ops_total",
		Help: "Conversational memory operations by outcome",
	}, []string{"op", "outcome"})

	retrievedDocs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "agentcore_retrieved_documents",
		Help:    "Documents returned per context build",
		Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
	})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(Collectors()...)
	})
}

// Collectors exposes all collectors for registration with a custom registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{modelLatency, modelCalls, modelTokens, modelCost, agentRuns, orchestrations, memoryOps, retrievedDocs}
}

// Handler serves the default registry with every collector registered.
func Handler() http.Handler {
	ensureRegistered()
	return promhttp.Handler()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveModelCall records latency and outcome of one provider call.
func ObserveModelCall(provider, model string, start time.Time, err error) {
	ensureRegistered()
	modelLatency.WithLabelValues(provider, model).Observe(float64(time.Since(start).Milliseconds()))
	modelCalls.WithLabelValues(provider, model, outcome(err)).Inc()
}

// AddModelUsage records token counts and estimated cost.
func AddModelUsage(provider, model string, promptTokens, completionTokens int, costUSD float64) {
	ensureRegistered()
	modelTokens.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	modelTokens.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	if costUSD > 0 {
		modelCost.WithLabelValues(model).Add(costUSD)
	}
}

// IncAgentRun counts one agent invocation.
func IncAgentRun(agent, operation string, err error) {
	ensureRegistered()
	agentRuns.WithLabelValues(agent, operation, outcome(err)).Inc()
}

// ObserveOrchestration records one orchestrator execution.
func ObserveOrchestration(workflow string, start time.Time, err error) {
	ensureRegistered()
	if workflow == "" {
		workflow = "none"
	}
	orchestrations.WithLabelValues(workflow, outcome(err)).Observe(float64(time.Since(start).Milliseconds()))
}

// IncMemoryOp counts one memory operation.
func IncMemoryOp(op string, err error) {
	ensureRegistered()
	memoryOps.WithLabelValues(op, outcome(err)).Inc()
}

// ObserveRetrievedDocs records how many documents a context build returned.
func ObserveRetrievedDocs(n int) {
	ensureRegistered()
	retrievedDocs.Observe(float64(n))
}
