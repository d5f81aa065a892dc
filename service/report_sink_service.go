package service

import (
	"context"
	"time"
	"toll-backend/infra"
	"toll-backend/model"
	"toll-backend/utils"

	"github.com/rs/zerolog"
)

// ReportSink 報表落地的擴充點：接口固定（種類 + 資料 + 產生時間），儲存媒介可替換
type ReportSink interface {
	SaveReport(ctx context.Context, reportType model.ReportType, reportData interface{}, generatedAt time.Time) error
}

// MongoReportSink 將報表寫入 toll_reports 集合
type MongoReportSink struct {
	logger  zerolog.Logger
	mongoDB *infra.MongoDB
}

func NewMongoReportSink(logger zerolog.Logger, mongoDB *infra.MongoDB) *MongoReportSink {
	return &MongoReportSink{
		logger:  logger.With().Str("module", "report_sink").Logger(),
		mongoDB: mongoDB,
	}
}

func (s *MongoReportSink) SaveReport(ctx context.Context, reportType model.ReportType, reportData interface{}, generatedAt time.Time) error {
	coll := s.mongoDB.GetCollection(infra.CollectionTollReports)

	report := model.TollReport{
		ReportType:  reportType,
		Data:        reportData,
		GeneratedAt: generatedAt,
		CreatedAt:   utils.NowUTC(),
	}

	if _, err := coll.InsertOne(ctx, report); err != nil {
		s.logger.Error().Err(err).
			Str("report_type", string(reportType)).
			Msg("報表寫入失敗 (Failed to save report)")
		return err
	}

	s.logger.Info().
		Str("report_type", string(reportType)).
		Time("generated_at", generatedAt).
		Msg("報表已寫入 (Report saved)")
	return nil
}
