package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServiceType 定義服務類型
type ServiceType string

const (
	ServiceTypeTollUsage ServiceType = "toll_usage"
	ServiceTypeReport    ServiceType = "report"
)

// OperationType 定義操作類型
type OperationType string

const (
	OperationCreateTollUsages OperationType = "create_toll_usages"
	OperationTriggerReport    OperationType = "trigger_report"
	OperationGenerateReport   OperationType = "generate_report"
	OperationPersistBatch     OperationType = "persist_batch"
)

// OperationStatus 定義操作狀態
type OperationStatus string

const (
	StatusSuccess OperationStatus = "success"
	StatusError   OperationStatus = "error"
)

var (
	serviceOperationsTotal   *prometheus.CounterVec
	serviceOperationDuration *prometheus.HistogramVec

	tollUsagesIngestedTotal prometheus.Counter
	reportsGeneratedTotal   *prometheus.CounterVec
)

// InitServiceMetrics 初始化 Service 層 metrics
func InitServiceMetrics(registry *prometheus.Registry) error {
	serviceOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "service_operations_total",
			Help: "Total number of service layer operations",
		},
		[]string{"service", "operation", "status"},
	)

	serviceOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "service_operation_duration_seconds",
			Help:    "Duration of service layer operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	tollUsagesIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "toll_usages_ingested_total",
			Help: "Total number of toll usage records persisted",
		},
	)

	reportsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reports_generated_total",
			Help: "Total number of reports generated by report type and status",
		},
		[]string{"report_type", "status"},
	)

	if err := registry.Register(serviceOperationsTotal); err != nil {
		return err
	}

	if err := registry.Register(serviceOperationDuration); err != nil {
		return err
	}

	if err := registry.Register(tollUsagesIngestedTotal); err != nil {
		return err
	}

	if err := registry.Register(reportsGeneratedTotal); err != nil {
		return err
	}

	return nil
}

// RecordServiceOperation 記錄 Service 層操作 metrics
func RecordServiceOperation(service ServiceType, operation OperationType, status OperationStatus, duration time.Duration) {
	if serviceOperationsTotal != nil && serviceOperationDuration != nil {
		serviceOperationsTotal.WithLabelValues(string(service), string(operation), string(status)).Inc()
		serviceOperationDuration.WithLabelValues(string(service), string(operation)).Observe(duration.Seconds())
	}
}

// RecordTollUsagesIngested 記錄已寫入的通行紀錄筆數
func RecordTollUsagesIngested(count int) {
	if tollUsagesIngestedTotal != nil {
		tollUsagesIngestedTotal.Add(float64(count))
	}
}

// RecordReportGenerated 記錄報表產生結果
func RecordReportGenerated(reportType string, status OperationStatus) {
	if reportsGeneratedTotal != nil {
		reportsGeneratedTotal.WithLabelValues(reportType, string(status)).Inc()
	}
}
