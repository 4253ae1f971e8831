package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TaskWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worksync",
		Name:      "task_writes_total",
		Help:      "Task writes issued through the commander, by operation and outcome.",
	}, []string{"op", "outcome"})

	FlowInvocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worksync",
		Name:      "flow_invocations_total",
		Help:      "AI flow invocations by flow name and outcome.",
	}, []string{"flow", "outcome"})

	EscalatedTasks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worksync",
		Name:      "escalated_tasks_total",
		Help:      "Tasks raised to priority 1 by the due-date escalation.",
	})

	ActiveSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "worksync",
		Name:      "task_subscriptions_active",
		Help:      "Distinct task queries currently listened to.",
	})

	RemindersSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worksync",
		Name:      "reminders_sent_total",
		Help:      "Reminder notifications dispatched by the scheduler.",
	})
)

func init() {
	prometheus.MustRegister(TaskWrites, FlowInvocations, EscalatedTasks, ActiveSubscriptions, RemindersSent)
}

// RegisterSSEClients exposes the number of open event streams.
func RegisterSSEClients(count func() int) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "worksync",
		Name:      "sse_clients",
		Help:      "Open server-sent event streams.",
	}, func() float64 { return float64(count()) }))
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
