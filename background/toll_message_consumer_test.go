package background

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"toll-backend/model"

	"github.com/rs/zerolog"
)

type fakeTollUsageStore struct {
	createdBatches [][]*model.TollUsage
	createErr      error
	hourlyResult   map[string][]model.HourlyTotal
	topResult      []model.TollboothTotal
	topCount       int
	vehicleResult  map[model.VehicleType]int
	vehicleBooth   string
	queryErr       error
}

func (f *fakeTollUsageStore) CreateTollUsages(ctx context.Context, tollUsages []*model.TollUsage) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.createdBatches = append(f.createdBatches, tollUsages)
	return nil
}

func (f *fakeTollUsageStore) GetHourlyTotalByCity(ctx context.Context, startDate, endDate time.Time) (map[string][]model.HourlyTotal, error) {
	return f.hourlyResult, f.queryErr
}

func (f *fakeTollUsageStore) GetTopTollboothsMonth(ctx context.Context, count int, month time.Time) ([]model.TollboothTotal, error) {
	f.topCount = count
	return f.topResult, f.queryErr
}

func (f *fakeTollUsageStore) GetVehicleTypesByTollbooth(ctx context.Context, tollBooth string, startDate, endDate time.Time) (map[model.VehicleType]int, error) {
	f.vehicleBooth = tollBooth
	return f.vehicleResult, f.queryErr
}

type savedReport struct {
	reportType  model.ReportType
	reportData  interface{}
	generatedAt time.Time
}

type fakeReportSink struct {
	saved   []savedReport
	saveErr error
}

func (f *fakeReportSink) SaveReport(ctx context.Context, reportType model.ReportType, reportData interface{}, generatedAt time.Time) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, savedReport{reportType: reportType, reportData: reportData, generatedAt: generatedAt})
	return nil
}

func newTestConsumer(store *fakeTollUsageStore, sink *fakeReportSink) *TollMessageConsumer {
	return NewTollMessageConsumer(zerolog.Nop(), nil, nil, store, sink)
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("序列化失敗: %v", err)
	}
	return body
}

func TestHandleTollUsageMessage(t *testing.T) {
	t.Run("批次寫入並補發缺少的ID", func(t *testing.T) {
		store := &fakeTollUsageStore{}
		consumer := newTestConsumer(store, &fakeReportSink{})

		message := model.TollUsageMessage{
			ID: "msg-1",
			TollUsages: []model.TollUsageInput{
				{
					ID:            "existing-id",
					UsageDateTime: time.Now().UTC().Add(-time.Hour),
					TollBooth:     "TB-001",
					City:          "Taipei",
					State:         "TW",
					Amount:        40,
					VehicleType:   model.VehicleTypeCar,
				},
				{
					UsageDateTime: time.Now().UTC().Add(-2 * time.Hour),
					TollBooth:     "TB-002",
					City:          "Taichung",
					State:         "TW",
					Amount:        25,
					VehicleType:   model.VehicleTypeMotorcycle,
				},
			},
		}

		if err := consumer.handleTollUsageMessage(context.Background(), mustMarshal(t, message)); err != nil {
			t.Fatalf("處理失敗: %v", err)
		}

		if len(store.createdBatches) != 1 {
			t.Fatalf("預期寫入一個批次, got %d", len(store.createdBatches))
		}
		batch := store.createdBatches[0]
		if len(batch) != 2 {
			t.Fatalf("預期批次包含 2 筆, got %d", len(batch))
		}
		if batch[0].ID != "existing-id" {
			t.Fatalf("已帶 ID 的紀錄不應被覆寫, got %q", batch[0].ID)
		}
		if batch[1].ID == "" {
			t.Fatal("缺少 ID 的紀錄應補發 UUID")
		}
		if batch[1].TollBooth != "TB-002" || batch[1].VehicleType != model.VehicleTypeMotorcycle {
			t.Fatalf("欄位對應錯誤: %+v", batch[1])
		}
	})

	t.Run("存儲失敗錯誤向上傳遞", func(t *testing.T) {
		store := &fakeTollUsageStore{createErr: errors.New("mongo down")}
		consumer := newTestConsumer(store, &fakeReportSink{})

		message := model.TollUsageMessage{ID: "msg-2", TollUsages: []model.TollUsageInput{{TollBooth: "TB-001"}}}
		err := consumer.handleTollUsageMessage(context.Background(), mustMarshal(t, message))
		if err == nil || !strings.Contains(err.Error(), "mongo down") {
			t.Fatalf("預期存儲錯誤, got %v", err)
		}
	})

	t.Run("訊息格式錯誤回傳解析錯誤", func(t *testing.T) {
		consumer := newTestConsumer(&fakeTollUsageStore{}, &fakeReportSink{})
		if err := consumer.handleTollUsageMessage(context.Background(), []byte("not json")); err == nil {
			t.Fatal("預期解析錯誤")
		}
	})
}

func TestHandleReportGenerationMessage(t *testing.T) {
	now := time.Now().UTC()
	amount := 3
	boothID := "TB-001"

	t.Run("每小時城市總計報表落地", func(t *testing.T) {
		store := &fakeTollUsageStore{
			hourlyResult: map[string][]model.HourlyTotal{
				"Taipei": {{Hour: now.Truncate(time.Hour), Total: 120}},
			},
		}
		sink := &fakeReportSink{}
		consumer := newTestConsumer(store, sink)

		message := model.ReportGenerationMessage{
			ID:          "report-1",
			GeneratedAt: now,
			StartDate:   now.Add(-24 * time.Hour),
			EndDate:     now,
			ReportType:  model.ReportTypeHourlyByCity,
		}

		if err := consumer.handleReportGenerationMessage(context.Background(), mustMarshal(t, message)); err != nil {
			t.Fatalf("處理失敗: %v", err)
		}
		if len(sink.saved) != 1 {
			t.Fatalf("預期落地一份報表, got %d", len(sink.saved))
		}
		if sink.saved[0].reportType != model.ReportTypeHourlyByCity {
			t.Fatalf("報表種類不符: %s", sink.saved[0].reportType)
		}
	})

	t.Run("排行報表使用數量參數", func(t *testing.T) {
		store := &fakeTollUsageStore{
			topResult: []model.TollboothTotal{{TollBooth: "TB-001", TotalAmount: 500}},
		}
		sink := &fakeReportSink{}
		consumer := newTestConsumer(store, sink)

		message := model.ReportGenerationMessage{
			ID:         "report-2",
			StartDate:  now.Add(-24 * time.Hour),
			EndDate:    now,
			ReportType: model.ReportTypeTopTollbooths,
			Parameters: model.ReportParameters{TollboothsAmount: &amount},
		}

		if err := consumer.handleReportGenerationMessage(context.Background(), mustMarshal(t, message)); err != nil {
			t.Fatalf("處理失敗: %v", err)
		}
		if store.topCount != amount {
			t.Fatalf("預期取前 %d 名, got %d", amount, store.topCount)
		}
		if len(sink.saved) != 1 {
			t.Fatalf("預期落地一份報表, got %d", len(sink.saved))
		}
	})

	t.Run("車種報表使用收費站參數", func(t *testing.T) {
		store := &fakeTollUsageStore{
			vehicleResult: map[model.VehicleType]int{model.VehicleTypeCar: 10},
		}
		sink := &fakeReportSink{}
		consumer := newTestConsumer(store, sink)

		message := model.ReportGenerationMessage{
			ID:         "report-3",
			StartDate:  now.Add(-24 * time.Hour),
			EndDate:    now,
			ReportType: model.ReportTypeVehicleTypesByTollbooth,
			Parameters: model.ReportParameters{TollBoothID: &boothID},
		}

		if err := consumer.handleReportGenerationMessage(context.Background(), mustMarshal(t, message)); err != nil {
			t.Fatalf("處理失敗: %v", err)
		}
		if store.vehicleBooth != boothID {
			t.Fatalf("預期查詢收費站 %s, got %s", boothID, store.vehicleBooth)
		}
		if len(sink.saved) != 1 {
			t.Fatalf("預期落地一份報表, got %d", len(sink.saved))
		}
	})

	t.Run("排行報表缺少數量參數屬致命錯誤", func(t *testing.T) {
		sink := &fakeReportSink{}
		consumer := newTestConsumer(&fakeTollUsageStore{}, sink)

		message := model.ReportGenerationMessage{
			ID:         "report-4",
			StartDate:  now.Add(-24 * time.Hour),
			EndDate:    now,
			ReportType: model.ReportTypeTopTollbooths,
		}

		err := consumer.handleReportGenerationMessage(context.Background(), mustMarshal(t, message))
		if err == nil || !strings.Contains(err.Error(), "tollboothsAmount") {
			t.Fatalf("預期參數缺失錯誤, got %v", err)
		}
		if len(sink.saved) != 0 {
			t.Fatal("致命錯誤不應落地報表")
		}
	})

	t.Run("車種報表缺少收費站參數屬致命錯誤", func(t *testing.T) {
		sink := &fakeReportSink{}
		consumer := newTestConsumer(&fakeTollUsageStore{}, sink)

		message := model.ReportGenerationMessage{
			ID:         "report-5",
			StartDate:  now.Add(-24 * time.Hour),
			EndDate:    now,
			ReportType: model.ReportTypeVehicleTypesByTollbooth,
		}

		err := consumer.handleReportGenerationMessage(context.Background(), mustMarshal(t, message))
		if err == nil || !strings.Contains(err.Error(), "tollBoothId") {
			t.Fatalf("預期參數缺失錯誤, got %v", err)
		}
		if len(sink.saved) != 0 {
			t.Fatal("致命錯誤不應落地報表")
		}
	})

	t.Run("報表種類未知屬致命錯誤", func(t *testing.T) {
		sink := &fakeReportSink{}
		consumer := newTestConsumer(&fakeTollUsageStore{}, sink)

		message := model.ReportGenerationMessage{
			ID:         "report-6",
			StartDate:  now.Add(-24 * time.Hour),
			EndDate:    now,
			ReportType: "weekly_summary",
		}

		err := consumer.handleReportGenerationMessage(context.Background(), mustMarshal(t, message))
		if err == nil || !strings.Contains(err.Error(), "invalid report type") {
			t.Fatalf("預期未知種類錯誤, got %v", err)
		}
		if len(sink.saved) != 0 {
			t.Fatal("致命錯誤不應落地報表")
		}
	})

	t.Run("落地失敗錯誤向上傳遞", func(t *testing.T) {
		store := &fakeTollUsageStore{hourlyResult: map[string][]model.HourlyTotal{}}
		sink := &fakeReportSink{saveErr: errors.New("sink down")}
		consumer := newTestConsumer(store, sink)

		message := model.ReportGenerationMessage{
			ID:         "report-7",
			StartDate:  now.Add(-24 * time.Hour),
			EndDate:    now,
			ReportType: model.ReportTypeHourlyByCity,
		}

		err := consumer.handleReportGenerationMessage(context.Background(), mustMarshal(t, message))
		if err == nil || !strings.Contains(err.Error(), "sink down") {
			t.Fatalf("預期落地錯誤, got %v", err)
		}
	})

	t.Run("訊息缺少GeneratedAt時由消費端補上", func(t *testing.T) {
		store := &fakeTollUsageStore{hourlyResult: map[string][]model.HourlyTotal{}}
		sink := &fakeReportSink{}
		consumer := newTestConsumer(store, sink)

		message := model.ReportGenerationMessage{
			ID:         "report-8",
			StartDate:  now.Add(-24 * time.Hour),
			EndDate:    now,
			ReportType: model.ReportTypeHourlyByCity,
		}

		if err := consumer.handleReportGenerationMessage(context.Background(), mustMarshal(t, message)); err != nil {
			t.Fatalf("處理失敗: %v", err)
		}
		if sink.saved[0].generatedAt.IsZero() {
			t.Fatal("GeneratedAt 不應為空")
		}
	})
}
