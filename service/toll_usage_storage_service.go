package service

import (
	"context"
	"sync"
	"time"
	"toll-backend/infra"
	"toll-backend/model"
	"toll-backend/utils"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// defaultBatchSize 單一 chunk 的上限，用來控制單次寫入的記憶體與鎖footprint
const defaultBatchSize = 50000

// TollUsageStorageService 負責通行紀錄的批次寫入與聚合查詢，
// 聚合一律下推到 MongoDB pipeline，不把原始紀錄拉回記憶體
type TollUsageStorageService struct {
	logger     zerolog.Logger
	mongoDB    *infra.MongoDB
	timeoutSvc *TimeoutService
	batchSize  int
}

func NewTollUsageStorageService(logger zerolog.Logger, mongoDB *infra.MongoDB, timeoutSvc *TimeoutService, batchSize int) *TollUsageStorageService {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &TollUsageStorageService{
		logger:     logger.With().Str("module", "toll_usage_storage_service").Logger(),
		mongoDB:    mongoDB,
		timeoutSvc: timeoutSvc,
		batchSize:  batchSize,
	}
}

// CreateTollUsages 將已驗證的批次切成固定大小的 chunk 並行寫入。
// chunk 各自獨立提交：任一 chunk 失敗時錯誤會記錄後重新拋出，
// 呼叫端必須把整批視為「未寫入或部分寫入」，跨 chunk 沒有原子性保證。
func (s *TollUsageStorageService) CreateTollUsages(ctx context.Context, tollUsages []*model.TollUsage) error {
	return s.timeoutSvc.Execute(ctx, "create_toll_usages", func(opCtx context.Context) error {
		spanCtx, span := infra.StartStorageSpan(opCtx, "create_toll_usages",
			infra.AttrRecordCount(len(tollUsages)),
		)
		defer span.End()

		now := utils.NowUTC()
		for _, usage := range tollUsages {
			if usage.CreatedAt.IsZero() {
				usage.CreatedAt = now
			}
		}

		chunks := chunkTollUsages(tollUsages, s.batchSize)
		infra.AddEvent(span, "chunks_partitioned", infra.AttrChunkCount(len(chunks)))

		// 每個 chunk 透過 driver 的連線池取得獨立 session，
		// 並行寫入之間不共享可變狀態
		var wg sync.WaitGroup
		errCh := make(chan error, len(chunks))
		for _, chunk := range chunks {
			wg.Add(1)
			go func(chunk []*model.TollUsage) {
				defer wg.Done()
				if err := s.insertChunk(spanCtx, chunk); err != nil {
					errCh <- err
				}
			}(chunk)
		}
		wg.Wait()
		close(errCh)

		if err := <-errCh; err != nil {
			infra.RecordError(span, err, "Chunk persistence failed")
			s.logger.Error().Err(err).
				Int("record_count", len(tollUsages)).
				Int("chunk_count", len(chunks)).
				Msg("通行紀錄批次寫入失敗 (Failed to persist toll usage batch)")
			return err
		}

		infra.MarkSuccess(span, infra.AttrChunkCount(len(chunks)))
		return nil
	})
}

// insertChunk 單一 chunk 作為一次 InsertMany 提交，
// 寫入選項是每次呼叫各自建立的，不動到任何共享設定
func (s *TollUsageStorageService) insertChunk(ctx context.Context, chunk []*model.TollUsage) error {
	docs := make([]interface{}, 0, len(chunk))
	for _, usage := range chunk {
		docs = append(docs, usage)
	}

	opts := options.InsertMany().
		SetOrdered(false).
		SetBypassDocumentValidation(true)

	coll := s.mongoDB.GetCollection(infra.CollectionTollUsages)
	_, err := coll.InsertMany(ctx, docs, opts)
	return err
}

// chunkTollUsages 將批次切成最大 size 筆的分段，保留輸入順序
func chunkTollUsages(tollUsages []*model.TollUsage, size int) [][]*model.TollUsage {
	var chunks [][]*model.TollUsage
	for start := 0; start < len(tollUsages); start += size {
		end := start + size
		if end > len(tollUsages) {
			end = len(tollUsages)
		}
		chunks = append(chunks, tollUsages[start:end])
	}
	return chunks
}

// GetHourlyTotalByCity 查詢 [startDate, endDate] 範圍內各城市每小時金額總計，
// 小時在 pipeline 內截斷到整點，每個城市的清單依小時遞增排序
func (s *TollUsageStorageService) GetHourlyTotalByCity(ctx context.Context, startDate, endDate time.Time) (map[string][]model.HourlyTotal, error) {
	return ExecuteWithTimeout(s.timeoutSvc, ctx, "get_hourly_total_by_city", func(opCtx context.Context) (map[string][]model.HourlyTotal, error) {
		coll := s.mongoDB.GetCollection(infra.CollectionTollUsages)

		pipeline := []bson.M{
			{"$match": bson.M{
				"usage_date_time": bson.M{"$gte": startDate, "$lte": endDate},
			}},
			{"$group": bson.M{
				"_id": bson.M{
					"city": "$city",
					"hour": bson.M{"$dateTrunc": bson.M{"date": "$usage_date_time", "unit": "hour"}},
				},
				"total": bson.M{"$sum": "$amount"},
			}},
			{"$sort": bson.M{"_id.city": 1, "_id.hour": 1}},
		}

		cursor, err := coll.Aggregate(opCtx, pipeline)
		if err != nil {
			s.logger.Error().Err(err).Msg("聚合查詢各城市每小時總計失敗 (Failed to aggregate hourly totals by city)")
			return nil, err
		}
		defer cursor.Close(opCtx)

		var rows []struct {
			ID struct {
				City string    `bson:"city"`
				Hour time.Time `bson:"hour"`
			} `bson:"_id"`
			Total float64 `bson:"total"`
		}
		if err := cursor.All(opCtx, &rows); err != nil {
			s.logger.Error().Err(err).Msg("讀取各城市每小時總計結果失敗 (Failed to read hourly totals by city)")
			return nil, err
		}

		results := make(map[string][]model.HourlyTotal)
		for _, row := range rows {
			results[row.ID.City] = append(results[row.ID.City], model.HourlyTotal{
				Hour:  row.ID.Hour,
				Total: row.Total,
			})
		}
		return results, nil
	})
}

// GetTopTollboothsMonth 查詢 month 所在月份（當月第一天到下月第一天前）
// 營收前 count 名的收費站，金額相同時的名次順序不保證穩定
func (s *TollUsageStorageService) GetTopTollboothsMonth(ctx context.Context, count int, month time.Time) ([]model.TollboothTotal, error) {
	return ExecuteWithTimeout(s.timeoutSvc, ctx, "get_top_tollbooths_month", func(opCtx context.Context) ([]model.TollboothTotal, error) {
		startDate, endDate := utils.MonthRange(month.UTC())

		coll := s.mongoDB.GetCollection(infra.CollectionTollUsages)

		pipeline := []bson.M{
			{"$match": bson.M{
				"usage_date_time": bson.M{"$gte": startDate, "$lt": endDate},
			}},
			{"$group": bson.M{
				"_id":   "$toll_booth",
				"total": bson.M{"$sum": "$amount"},
			}},
			{"$sort": bson.M{"total": -1}},
			{"$limit": count},
		}

		cursor, err := coll.Aggregate(opCtx, pipeline)
		if err != nil {
			s.logger.Error().Err(err).Int("count", count).Msg("聚合查詢收費站月營收排行失敗 (Failed to aggregate top tollbooths)")
			return nil, err
		}
		defer cursor.Close(opCtx)

		var results []model.TollboothTotal
		if err := cursor.All(opCtx, &results); err != nil {
			s.logger.Error().Err(err).Msg("讀取收費站月營收排行結果失敗 (Failed to read top tollbooths)")
			return nil, err
		}
		return results, nil
	})
}

// GetVehicleTypesByTollbooth 查詢單一收費站在 [startDate, endDate] 範圍內的車種分佈，
// 範圍內沒有出現的車種不會出現在結果中（不補零）
func (s *TollUsageStorageService) GetVehicleTypesByTollbooth(ctx context.Context, tollBooth string, startDate, endDate time.Time) (map[model.VehicleType]int, error) {
	return ExecuteWithTimeout(s.timeoutSvc, ctx, "get_vehicle_types_by_tollbooth", func(opCtx context.Context) (map[model.VehicleType]int, error) {
		coll := s.mongoDB.GetCollection(infra.CollectionTollUsages)

		pipeline := []bson.M{
			{"$match": bson.M{
				"toll_booth":      tollBooth,
				"usage_date_time": bson.M{"$gte": startDate, "$lte": endDate},
			}},
			{"$group": bson.M{
				"_id":   "$vehicle_type",
				"count": bson.M{"$sum": 1},
			}},
		}

		cursor, err := coll.Aggregate(opCtx, pipeline)
		if err != nil {
			s.logger.Error().Err(err).Str("toll_booth", tollBooth).Msg("聚合查詢車種分佈失敗 (Failed to aggregate vehicle types)")
			return nil, err
		}
		defer cursor.Close(opCtx)

		var rows []struct {
			VehicleType model.VehicleType `bson:"_id"`
			Count       int               `bson:"count"`
		}
		if err := cursor.All(opCtx, &rows); err != nil {
			s.logger.Error().Err(err).Str("toll_booth", tollBooth).Msg("讀取車種分佈結果失敗 (Failed to read vehicle types)")
			return nil, err
		}

		results := make(map[model.VehicleType]int, len(rows))
		for _, row := range rows {
			results[row.VehicleType] = row.Count
		}
		return results, nil
	})
}
