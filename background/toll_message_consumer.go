package background

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"toll-backend/infra"
	"toll-backend/metrics"
	"toll-backend/model"
	"toll-backend/service"
	"toll-backend/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// processedMessageTTL 已處理訊息標記的保留時間，涵蓋 broker 重送的合理窗口
const processedMessageTTL = 24 * time.Hour

// TollUsageStore 消費端依賴的存儲操作
type TollUsageStore interface {
	CreateTollUsages(ctx context.Context, tollUsages []*model.TollUsage) error
	GetHourlyTotalByCity(ctx context.Context, startDate, endDate time.Time) (map[string][]model.HourlyTotal, error)
	GetTopTollboothsMonth(ctx context.Context, count int, month time.Time) ([]model.TollboothTotal, error)
	GetVehicleTypesByTollbooth(ctx context.Context, tollBooth string, startDate, endDate time.Time) (map[model.VehicleType]int, error)
}

// TollMessageConsumer 消費通行紀錄與報表產生兩個隊列，
// 每則訊息在獨立 goroutine 內處理，彼此不共享可變狀態
type TollMessageConsumer struct {
	logger     zerolog.Logger
	rabbitMQ   *infra.RabbitMQ
	redis      *infra.Redis
	storage    TollUsageStore
	reportSink service.ReportSink
}

func NewTollMessageConsumer(logger zerolog.Logger, rabbitMQ *infra.RabbitMQ, redis *infra.Redis, storage TollUsageStore, reportSink service.ReportSink) *TollMessageConsumer {
	return &TollMessageConsumer{
		logger:     logger.With().Str("module", "toll_message_consumer").Logger(),
		rabbitMQ:   rabbitMQ,
		redis:      redis,
		storage:    storage,
		reportSink: reportSink,
	}
}

// Start 啟動兩個隊列的消費迴圈
func (c *TollMessageConsumer) Start() error {
	if err := c.consumeQueue(infra.QueueNameTollUsages, c.handleTollUsageMessage); err != nil {
		return err
	}
	if err := c.consumeQueue(infra.QueueNameReportGeneration, c.handleReportGenerationMessage); err != nil {
		return err
	}
	c.logger.Info().Msg("訊息消費者已啟動 (Message consumer started)")
	return nil
}

func (c *TollMessageConsumer) consumeQueue(queueName infra.QueueName, handler func(context.Context, []byte) error) error {
	msgs, err := c.rabbitMQ.Channel.Consume(
		queueName.String(), // queue
		"",                 // consumer
		true,               // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,                // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume queue %s: %w", queueName, err)
	}

	go func() {
		for d := range msgs {
			body := d.Body
			go func() {
				// 處理不受任何呼叫端取消影響，由各存儲操作自身的逾時保護
				if err := handler(context.Background(), body); err != nil {
					c.logger.Error().Err(err).
						Str("queue", queueName.String()).
						Msg("訊息處理失敗 (Message handling failed)")
				}
			}()
		}
		c.logger.Warn().Str("queue", queueName.String()).Msg("隊列消費迴圈結束 (Queue consume loop ended)")
	}()

	return nil
}

// isDuplicateMessage 以 Redis 判斷訊息是否已處理過。
// Redis 不可用時視為未處理過，寧可重複處理也不丟訊息
func (c *TollMessageConsumer) isDuplicateMessage(ctx context.Context, messageID string) bool {
	if c.redis == nil || messageID == "" {
		return false
	}
	exists, err := c.redis.Client.Exists(ctx, processedMessageKey(messageID)).Result()
	if err != nil {
		c.logger.Debug().Err(err).Str("message_id", messageID).Msg("查詢訊息處理標記失敗，視為未處理")
		return false
	}
	return exists > 0
}

// markMessageProcessed 處理成功後標記訊息 ID，帶 TTL，失敗僅記錄
func (c *TollMessageConsumer) markMessageProcessed(ctx context.Context, messageID string) {
	if c.redis == nil || messageID == "" {
		return
	}
	if err := c.redis.Client.Set(ctx, processedMessageKey(messageID), 1, processedMessageTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Str("message_id", messageID).Msg("寫入訊息處理標記失敗")
	}
}

func processedMessageKey(messageID string) string {
	return "toll:processed_message:" + messageID
}

// handleTollUsageMessage 處理通行紀錄批次訊息：補發缺少的 ID 後整批寫入
func (c *TollMessageConsumer) handleTollUsageMessage(ctx context.Context, body []byte) error {
	startTime := time.Now()

	var message model.TollUsageMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return fmt.Errorf("failed to unmarshal toll usage message: %w", err)
	}

	spanCtx, span := infra.StartConsumerSpan(ctx, "handle_toll_usages",
		infra.AttrMessageID(message.ID),
		infra.AttrRecordCount(len(message.TollUsages)),
	)
	defer span.End()

	if c.isDuplicateMessage(spanCtx, message.ID) {
		c.logger.Info().Str("message_id", message.ID).Msg("訊息已處理過，跳過 (Duplicate message skipped)")
		infra.AddEvent(span, "duplicate_skipped")
		return nil
	}

	tollUsages := mapTollUsageInputs(message.TollUsages)

	if err := c.storage.CreateTollUsages(spanCtx, tollUsages); err != nil {
		metrics.RecordServiceOperation(metrics.ServiceTypeTollUsage, metrics.OperationPersistBatch, metrics.StatusError, time.Since(startTime))
		infra.RecordError(span, err, "Batch persistence failed")
		return err
	}

	c.markMessageProcessed(spanCtx, message.ID)
	metrics.RecordServiceOperation(metrics.ServiceTypeTollUsage, metrics.OperationPersistBatch, metrics.StatusSuccess, time.Since(startTime))
	metrics.RecordTollUsagesIngested(len(tollUsages))
	infra.MarkSuccess(span)

	c.logger.Info().
		Str("message_id", message.ID).
		Int("record_count", len(tollUsages)).
		Msg("通行紀錄批次已寫入 (Toll usage batch persisted)")
	return nil
}

// mapTollUsageInputs 將輸入 DTO 轉成存儲用的紀錄，缺少 ID 的補發 UUID
func mapTollUsageInputs(inputs []model.TollUsageInput) []*model.TollUsage {
	tollUsages := make([]*model.TollUsage, 0, len(inputs))
	for _, input := range inputs {
		id := input.ID
		if id == "" {
			id = uuid.NewString()
		}
		tollUsages = append(tollUsages, &model.TollUsage{
			ID:            id,
			UsageDateTime: input.UsageDateTime,
			TollBooth:     input.TollBooth,
			City:          input.City,
			State:         input.State,
			Amount:        input.Amount,
			VehicleType:   input.VehicleType,
		})
	}
	return tollUsages
}

// handleReportGenerationMessage 處理報表產生訊息：依種類產生後交給 sink 落地。
// 參數缺失或種類未知屬於致命錯誤，記錄後丟棄訊息，不重試
func (c *TollMessageConsumer) handleReportGenerationMessage(ctx context.Context, body []byte) error {
	startTime := time.Now()

	var message model.ReportGenerationMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return fmt.Errorf("failed to unmarshal report generation message: %w", err)
	}

	spanCtx, span := infra.StartConsumerSpan(ctx, "handle_report_generation",
		infra.AttrMessageID(message.ID),
		infra.AttrReportType(string(message.ReportType)),
	)
	defer span.End()

	if c.isDuplicateMessage(spanCtx, message.ID) {
		c.logger.Info().Str("message_id", message.ID).Msg("訊息已處理過，跳過 (Duplicate message skipped)")
		infra.AddEvent(span, "duplicate_skipped")
		return nil
	}

	reportData, err := c.generateReport(spanCtx, &message)
	if err != nil {
		metrics.RecordReportGenerated(string(message.ReportType), metrics.StatusError)
		infra.RecordError(span, err, "Report generation failed")
		c.logger.Error().Err(err).
			Str("message_id", message.ID).
			Str("report_type", string(message.ReportType)).
			Msg("報表產生失敗 (Report generation failed)")
		return err
	}

	generatedAt := message.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = utils.NowUTC()
	}

	if err := c.reportSink.SaveReport(spanCtx, message.ReportType, reportData, generatedAt); err != nil {
		metrics.RecordReportGenerated(string(message.ReportType), metrics.StatusError)
		infra.RecordError(span, err, "Report sink failed")
		return err
	}

	c.markMessageProcessed(spanCtx, message.ID)
	metrics.RecordServiceOperation(metrics.ServiceTypeReport, metrics.OperationGenerateReport, metrics.StatusSuccess, time.Since(startTime))
	metrics.RecordReportGenerated(string(message.ReportType), metrics.StatusSuccess)
	infra.MarkSuccess(span)

	c.logger.Info().
		Str("message_id", message.ID).
		Str("report_type", string(message.ReportType)).
		Msg("報表產生完成 (Report generation completed)")
	return nil
}

// generateReport 依報表種類分派到對應的聚合查詢
func (c *TollMessageConsumer) generateReport(ctx context.Context, message *model.ReportGenerationMessage) (interface{}, error) {
	switch message.ReportType {
	case model.ReportTypeHourlyByCity:
		return c.storage.GetHourlyTotalByCity(ctx, message.StartDate, message.EndDate)

	case model.ReportTypeTopTollbooths:
		amount := message.Parameters.TollboothsAmount
		if amount == nil || *amount <= 0 {
			return nil, fmt.Errorf("parameter 'tollboothsAmount' is required and must be greater than 0 for report type %s", message.ReportType)
		}
		return c.storage.GetTopTollboothsMonth(ctx, *amount, message.StartDate)

	case model.ReportTypeVehicleTypesByTollbooth:
		tollBoothID := message.Parameters.TollBoothID
		if tollBoothID == nil || *tollBoothID == "" {
			return nil, fmt.Errorf("parameter 'tollBoothId' is required for report type %s", message.ReportType)
		}
		return c.storage.GetVehicleTypesByTollbooth(ctx, *tollBoothID, message.StartDate, message.EndDate)

	default:
		return nil, fmt.Errorf("invalid report type: %s", message.ReportType)
	}
}
