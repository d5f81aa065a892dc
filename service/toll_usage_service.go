package service

import (
	"context"
	"fmt"
	"time"
	"toll-backend/infra"
	"toll-backend/model"
	"toll-backend/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MessageSender 訊息發送協作者，*infra.RabbitMQ 實現此接口
type MessageSender interface {
	PublishJSON(queueName infra.QueueName, message interface{}) error
}

// TollUsageService 負責驗證輸入並將批次包成訊息排入隊列。
// 成功回傳代表「已接受處理」，不代表已寫入儲存層。
type TollUsageService struct {
	logger zerolog.Logger
	sender MessageSender
}

func NewTollUsageService(logger zerolog.Logger, sender MessageSender) *TollUsageService {
	return &TollUsageService{
		logger: logger.With().Str("module", "toll_usage_service").Logger(),
		sender: sender,
	}
}

// CreateTollUsages 驗證整批通行紀錄後排入隊列，任一筆驗證失敗則整批拒絕。
// 回傳的 error 僅承載 context 取消/逾時，業務驗證結果一律走 OperationResult。
func (s *TollUsageService) CreateTollUsages(ctx context.Context, tollUsages []model.TollUsageInput) (model.OperationResult[string], error) {
	if len(tollUsages) == 0 {
		return model.Failure[string]("No toll usages provided"), nil
	}

	// 整批共用同一個基準時間，確保驗證結果一致
	currentTime := utils.NowUTC()

	for i, usage := range tollUsages {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return model.OperationResult[string]{}, err
			}
		}
		if result := validateUsageRecord(currentTime, usage); !result.IsSuccess {
			return result, nil
		}
	}

	message := model.TollUsageMessage{
		ID:         uuid.NewString(),
		TollUsages: tollUsages,
	}

	if err := s.sender.PublishJSON(infra.QueueNameTollUsages, message); err != nil {
		s.logger.Error().Err(err).
			Int("record_count", len(tollUsages)).
			Msg("通行紀錄批次訊息發送失敗 (Failed to publish toll usage message)")
		return model.Failure[string]("Error creating toll usage"), nil
	}

	s.logger.Info().
		Str("message_id", message.ID).
		Int("record_count", len(tollUsages)).
		Msg("通行紀錄批次已排入隊列 (Toll usage batch queued)")
	return model.Success("Toll Usages Creation Successfully Triggered"), nil
}

// TriggerReportGeneration 驗證報表請求後排入隊列，由消費端非同步產生報表
func (s *TollUsageService) TriggerReportGeneration(ctx context.Context, startDate, endDate time.Time, reportType model.ReportType, parameters model.ReportParameters) (model.OperationResult[string], error) {
	if err := ctx.Err(); err != nil {
		return model.OperationResult[string]{}, err
	}

	if !reportType.IsValid() {
		return model.Failure[string]("Invalid report type"), nil
	}

	if result := validateReportDates(startDate, endDate); !result.IsSuccess {
		return result, nil
	}

	if result := validateReportParameters(reportType, parameters); !result.IsSuccess {
		return result, nil
	}

	message := model.ReportGenerationMessage{
		ID:          uuid.NewString(),
		GeneratedAt: utils.NowUTC(),
		StartDate:   startDate,
		EndDate:     endDate,
		ReportType:  reportType,
		Parameters:  parameters,
	}

	if err := s.sender.PublishJSON(infra.QueueNameReportGeneration, message); err != nil {
		s.logger.Error().Err(err).
			Str("report_type", string(reportType)).
			Msg("報表產生訊息發送失敗 (Failed to publish report generation message)")
		return model.Failure[string]("Error triggering report generation"), nil
	}

	s.logger.Info().
		Str("message_id", message.ID).
		Str("report_type", string(reportType)).
		Time("start_date", startDate).
		Time("end_date", endDate).
		Msg("報表產生請求已排入隊列 (Report generation queued)")
	return model.Success("Report Generation Successfully Triggered"), nil
}

// validateUsageRecord 檢查單筆紀錄的所有業務規則，第一條失敗的規則決定回傳訊息
func validateUsageRecord(currentTime time.Time, usage model.TollUsageInput) model.OperationResult[string] {
	if usage.UsageDateTime.IsZero() {
		return model.Failure[string]("UsageDateTime cannot be empty")
	}
	if usage.UsageDateTime.After(currentTime) {
		return model.Failure[string]("UsageDateTime cannot be in the future")
	}
	if usage.Amount <= 0 {
		return model.Failure[string]("Amount must be greater than 0")
	}
	if usage.TollBooth == "" {
		return model.Failure[string]("TollBooth is required")
	}
	if usage.City == "" {
		return model.Failure[string]("City is required")
	}
	if usage.State == "" {
		return model.Failure[string]("State is required")
	}
	if !usage.VehicleType.IsValid() {
		return model.Failure[string](fmt.Sprintf("Invalid vehicle type: %s", usage.VehicleType))
	}
	return model.Success("Record is valid")
}

// validateReportDates 檢查報表日期範圍，規則短路：第一條失敗即回傳
func validateReportDates(startDate, endDate time.Time) model.OperationResult[string] {
	if startDate.IsZero() || endDate.IsZero() {
		return model.Failure[string]("StartDate and EndDate are required")
	}
	if startDate.After(utils.NowUTC()) {
		return model.Failure[string]("StartDate cannot be in the future")
	}
	if startDate.After(endDate) {
		return model.Failure[string]("StartDate cannot be greater than endDate")
	}
	return model.Success("Dates are valid")
}

// validateReportParameters 在邊界驗證各報表種類的必要參數，
// 讓缺漏在排入隊列前就被擋下，而不是在消費端才爆出解析錯誤
func validateReportParameters(reportType model.ReportType, parameters model.ReportParameters) model.OperationResult[string] {
	switch reportType {
	case model.ReportTypeTopTollbooths:
		if parameters.TollboothsAmount == nil {
			return model.Failure[string]("tollboothsAmount parameter is required for top tollbooths report")
		}
		if *parameters.TollboothsAmount <= 0 {
			return model.Failure[string]("tollboothsAmount parameter must be greater than 0")
		}
	case model.ReportTypeVehicleTypesByTollbooth:
		if parameters.TollBoothID == nil || *parameters.TollBoothID == "" {
			return model.Failure[string]("tollBoothId parameter is required for vehicle types report")
		}
	}
	return model.Success("Parameters are valid")
}
