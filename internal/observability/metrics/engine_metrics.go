package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/constructtrack/internal/authorization"
	inventorydomain "github.com/smallbiznis/constructtrack/internal/inventory/domain"
	invoicedomain "github.com/smallbiznis/constructtrack/internal/invoice/domain"
	"github.com/smallbiznis/constructtrack/internal/lock"
	projectdomain "github.com/smallbiznis/constructtrack/internal/project/domain"
	timetrackingdomain "github.com/smallbiznis/constructtrack/internal/timetracking/domain"
	userdomain "github.com/smallbiznis/constructtrack/internal/user/domain"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonForbidden            = "forbidden"
	ReasonLockNotAcquired      = "lock_not_acquired"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonInvalidTransition    = "invalid_transition"
	ReasonInsufficientStock    = "insufficient_stock"
	ReasonNothingToInvoice     = "nothing_to_invoice"
	ReasonNotFound             = "not_found"
	ReasonUnknown              = "unknown"
)

const (
	OpClockIn            = "clock_in"
	OpClockOut           = "clock_out"
	OpSwitchJob          = "switch_job"
	OpAdjustInventory    = "adjust_inventory"
	OpUsageFromInventory = "usage_inventory"
	OpUsageFromReceipt   = "usage_receipt"
	OpGenerateInvoice    = "generate_invoice"
	OpUpdateInvoice      = "update_invoice_status"
)

const (
	LockResourceUser    = "user"
	LockResourceProject = "project"
	LockResourceItem    = "inventory_item"
)

// EngineMetrics captures latency, failures and money flow of the clock,
// ledger and invoice engines.
type EngineMetrics struct {
	opDuration       *prometheus.HistogramVec
	opErrors         *prometheus.CounterVec
	clockTransitions *prometheus.CounterVec
	laborCost        prometheus.Counter
	materialUsage    *prometheus.CounterVec
	invoices         prometheus.Counter
	invoiceAmount    prometheus.Counter
	lockWait         *prometheus.HistogramVec
}

var (
	engineMetricsOnce sync.Once
	engineMetrics     *EngineMetrics
)

// Engine returns the singleton engine metrics registry.
func Engine() *EngineMetrics {
	return EngineWithConfig(Config{})
}

// EngineWithConfig returns the singleton engine metrics registry using config labels.
func EngineWithConfig(cfg Config) *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = newEngineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return engineMetrics
}

// ResetEngineMetricsForTest resets the engine metrics singleton for tests.
func ResetEngineMetricsForTest() {
	engineMetricsOnce = sync.Once{}
	engineMetrics = nil
}

func newEngineMetrics(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "constructtrack"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "constructtrack_operation_duration_seconds",
		Help:        "Engine operation latency including lock wait.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"op"})
	opErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "constructtrack_operation_errors_total",
		Help:        "Engine operation failures by reason.",
		ConstLabels: constLabels,
	}, []string{"op", "reason"})
	clockTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "constructtrack_clock_transitions_total",
		Help:        "Successful clock state transitions by kind.",
		ConstLabels: constLabels,
	}, []string{"kind"})
	laborCost := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "constructtrack_labor_cost_minor_total",
		Help:        "Labor cost posted to project spend, in minor currency units.",
		ConstLabels: constLabels,
	})
	materialUsage := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "constructtrack_material_usage_total",
		Help:        "Material logs written by source.",
		ConstLabels: constLabels,
	}, []string{"source"})
	invoices := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "constructtrack_invoices_generated_total",
		Help:        "Invoices generated.",
		ConstLabels: constLabels,
	})
	invoiceAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "constructtrack_invoice_amount_minor_total",
		Help:        "Invoice totals generated, in minor currency units.",
		ConstLabels: constLabels,
	})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "constructtrack_lock_wait_seconds",
		Help:        "Time spent waiting for per-user, per-project and per-item locks.",
		Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"resource"})

	registerer.MustRegister(
		opDuration,
		opErrors,
		clockTransitions,
		laborCost,
		materialUsage,
		invoices,
		invoiceAmount,
		lockWait,
	)

	return &EngineMetrics{
		opDuration:       opDuration,
		opErrors:         opErrors,
		clockTransitions: clockTransitions,
		laborCost:        laborCost,
		materialUsage:    materialUsage,
		invoices:         invoices,
		invoiceAmount:    invoiceAmount,
		lockWait:         lockWait,
	}
}

// ObserveOperation records latency since started and, on failure, the
// classified reason.
func (m *EngineMetrics) ObserveOperation(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	if err != nil {
		m.opErrors.WithLabelValues(op, ClassifyReason(err)).Inc()
	}
}

func (m *EngineMetrics) IncClockTransition(kind string) {
	if m == nil {
		return
	}
	m.clockTransitions.WithLabelValues(kind).Inc()
}

func (m *EngineMetrics) AddLaborCost(minor int64) {
	if m == nil || minor <= 0 {
		return
	}
	m.laborCost.Add(float64(minor))
}

func (m *EngineMetrics) AddMaterialUsage(source string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.materialUsage.WithLabelValues(source).Add(float64(count))
}

func (m *EngineMetrics) IncInvoiceGenerated(totalMinor int64) {
	if m == nil {
		return
	}
	m.invoices.Inc()
	if totalMinor > 0 {
		m.invoiceAmount.Add(float64(totalMinor))
	}
}

func (m *EngineMetrics) ObserveLockWait(resource string, duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.lockWait.WithLabelValues(resource).Observe(duration.Seconds())
}

// ClassifyReason maps engine errors to low-cardinality reasons.
func ClassifyReason(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return ReasonDeadlineExceeded
	case errors.Is(err, authorization.ErrForbidden):
		return ReasonForbidden
	case errors.Is(err, lock.ErrNotAcquired):
		return ReasonLockNotAcquired
	case hasPGCode(err, "55P03"):
		return ReasonDBLockTimeout
	case hasPGCode(err, "40001") || hasPGCode(err, "40P01"):
		return ReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505"):
		return ReasonUniqueViolation
	case errors.Is(err, timetrackingdomain.ErrInvalidTransition) || errors.Is(err, timetrackingdomain.ErrSameProject):
		return ReasonInvalidTransition
	case errors.Is(err, inventorydomain.ErrInsufficientStock):
		return ReasonInsufficientStock
	case errors.Is(err, invoicedomain.ErrNothingToInvoice):
		return ReasonNothingToInvoice
	case errors.Is(err, projectdomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, inventorydomain.ErrItemNotFound),
		errors.Is(err, invoicedomain.ErrNotFound):
		return ReasonNotFound
	default:
		return ReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
