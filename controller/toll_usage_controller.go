package controller

import (
	"context"
	"errors"
	"net/http"
	"toll-backend/data-models/toll_usage"
	"toll-backend/model"
	"toll-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

type TollUsageController struct {
	logger           zerolog.Logger
	tollUsageService *service.TollUsageService
	timeoutService   *service.TimeoutService
}

func NewTollUsageController(logger zerolog.Logger, tollUsageService *service.TollUsageService, timeoutService *service.TimeoutService) *TollUsageController {
	return &TollUsageController{
		logger:           logger.With().Str("module", "toll_usage_controller").Logger(),
		tollUsageService: tollUsageService,
		timeoutService:   timeoutService,
	}
}

func (c *TollUsageController) RegisterRoutes(api huma.API) {
	// 批次建立通行紀錄（排入隊列，非同步寫入）
	huma.Register(api, huma.Operation{
		OperationID: "create-toll-usages",
		Method:      "POST",
		Path:        "/toll-usages",
		Summary:     "批次建立通行紀錄",
		Description: "驗證整批通行紀錄後排入隊列，成功代表已接受處理，實際寫入由背景消費者完成",
		Tags:        []string{"Toll Usage"},
	}, func(ctx context.Context, input *toll_usage.CreateTollUsagesInput) (*toll_usage.CreateTollUsagesResponse, error) {
		result, err := service.ExecuteWithTimeout(c.timeoutService, ctx, "create_toll_usages_api", func(opCtx context.Context) (model.OperationResult[string], error) {
			return c.tollUsageService.CreateTollUsages(opCtx, input.Body)
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, huma.NewError(http.StatusRequestTimeout, "Request timed out")
			}
			c.logger.Error().Err(err).Msg("建立通行紀錄失敗")
			return nil, huma.Error500InternalServerError("建立通行紀錄失敗", err)
		}

		// 業務驗證失敗仍回 200，由 envelope 的 is_success 表達結果
		return &toll_usage.CreateTollUsagesResponse{Body: result}, nil
	})

	// 觸發報表產生（排入隊列，非同步產生）
	huma.Register(api, huma.Operation{
		OperationID: "generate-toll-report",
		Method:      "POST",
		Path:        "/toll-usages/generate-report",
		Summary:     "觸發報表產生",
		Description: "驗證報表請求後排入隊列，報表由背景消費者產生並落地",
		Tags:        []string{"Toll Usage"},
	}, func(ctx context.Context, input *toll_usage.GenerateReportInput) (*toll_usage.GenerateReportResponse, error) {
		result, err := service.ExecuteWithTimeout(c.timeoutService, ctx, "generate_report_api", func(opCtx context.Context) (model.OperationResult[string], error) {
			return c.tollUsageService.TriggerReportGeneration(opCtx, input.Body.StartDate, input.Body.EndDate, input.Body.ReportType, input.Body.Parameters)
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, huma.NewError(http.StatusRequestTimeout, "Request timed out")
			}
			c.logger.Error().Err(err).Msg("觸發報表產生失敗")
			return nil, huma.Error500InternalServerError("觸發報表產生失敗", err)
		}

		return &toll_usage.GenerateReportResponse{Body: result}, nil
	})
}
