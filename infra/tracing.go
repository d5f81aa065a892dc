package infra

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName = "toll-backend"
)

// 全局 tracer 實例
var globalTracer trace.Tracer

// InitTracer 初始化全局 tracer
func InitTracer() {
	globalTracer = otel.Tracer(ServiceName)
}

// GetTracer 獲取全局 tracer
func GetTracer() trace.Tracer {
	if globalTracer == nil {
		InitTracer()
	}
	return globalTracer
}

// TracingHelper 提供便捷的 tracing 方法
type TracingHelper struct {
	tracer trace.Tracer
}

// NewTracingHelper 創建新的 TracingHelper
func NewTracingHelper() *TracingHelper {
	return &TracingHelper{
		tracer: GetTracer(),
	}
}

// StartSpan 開始一個新的 span
func (t *TracingHelper) StartSpan(ctx context.Context, operationName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, operationName)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// AddEvent 向 span 添加事件
func (t *TracingHelper) AddEvent(span trace.Span, eventName string, attrs ...attribute.KeyValue) {
	if span != nil {
		span.AddEvent(eventName, trace.WithAttributes(attrs...))
	}
}

// SetAttributes 設置 span 屬性
func (t *TracingHelper) SetAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// RecordError 記錄錯誤到 span
func (t *TracingHelper) RecordError(span trace.Span, err error, description string, attrs ...attribute.KeyValue) {
	if span != nil {
		span.RecordError(err)
		if description != "" {
			span.SetStatus(codes.Error, description)
		}
		if len(attrs) > 0 {
			span.SetAttributes(attrs...)
		}
	}
}

// MarkSuccess 標記 span 為成功
func (t *TracingHelper) MarkSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
		if len(attrs) > 0 {
			span.SetAttributes(attrs...)
		}
	}
}

// 全局便捷函數
var defaultHelper = NewTracingHelper()

// StartSpan 全局函數，開始一個新的 span
func StartSpan(ctx context.Context, operationName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return defaultHelper.StartSpan(ctx, operationName, attrs...)
}

// AddEvent 全局函數，向 span 添加事件
func AddEvent(span trace.Span, eventName string, attrs ...attribute.KeyValue) {
	defaultHelper.AddEvent(span, eventName, attrs...)
}

// SetAttributes 全局函數，設置 span 屬性
func SetAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	defaultHelper.SetAttributes(span, attrs...)
}

// RecordError 全局函數，記錄錯誤到 span
func RecordError(span trace.Span, err error, description string, attrs ...attribute.KeyValue) {
	defaultHelper.RecordError(span, err, description, attrs...)
}

// MarkSuccess 全局函數，標記 span 為成功
func MarkSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	defaultHelper.MarkSuccess(span, attrs...)
}

// 常用的屬性建構函數
func AttrString(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

func AttrInt(key string, value int) attribute.KeyValue {
	return attribute.Int(key, value)
}

func AttrBool(key string, value bool) attribute.KeyValue {
	return attribute.Bool(key, value)
}

func AttrFloat64(key string, value float64) attribute.KeyValue {
	return attribute.Float64(key, value)
}

// 業務相關的屬性建構函數
func AttrMessageID(id string) attribute.KeyValue {
	return attribute.String("message.id", id)
}

func AttrTollBooth(tollBooth string) attribute.KeyValue {
	return attribute.String("toll_usage.toll_booth", tollBooth)
}

func AttrReportType(reportType string) attribute.KeyValue {
	return attribute.String("report.type", reportType)
}

func AttrRecordCount(count int) attribute.KeyValue {
	return attribute.Int("toll_usage.record_count", count)
}

func AttrChunkCount(count int) attribute.KeyValue {
	return attribute.Int("toll_usage.chunk_count", count)
}

func AttrOperation(operation string) attribute.KeyValue {
	return attribute.String("service.operation", operation)
}

// Consumer 專用的 tracing helper 函數
func StartConsumerSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	operationName := "toll_consumer_" + operation
	baseAttrs := []attribute.KeyValue{
		AttrOperation(operation),
	}
	baseAttrs = append(baseAttrs, attrs...)
	return StartSpan(ctx, operationName, baseAttrs...)
}

// Storage 專用的 tracing helper 函數
func StartStorageSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	operationName := "toll_storage_" + operation
	baseAttrs := []attribute.KeyValue{
		AttrOperation(operation),
	}
	baseAttrs = append(baseAttrs, attrs...)
	return StartSpan(ctx, operationName, baseAttrs...)
}
