package service

import (
	"context"
	"errors"
	"testing"
	"time"
	"toll-backend/infra"
	"toll-backend/model"

	"github.com/rs/zerolog"
)

type publishedMessage struct {
	queueName infra.QueueName
	message   interface{}
}

type fakeMessageSender struct {
	published  []publishedMessage
	publishErr error
}

func (f *fakeMessageSender) PublishJSON(queueName infra.QueueName, message interface{}) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{queueName: queueName, message: message})
	return nil
}

func newTestTollUsageService(sender *fakeMessageSender) *TollUsageService {
	return NewTollUsageService(zerolog.Nop(), sender)
}

func validTollUsageInput() model.TollUsageInput {
	return model.TollUsageInput{
		UsageDateTime: time.Now().UTC().Add(-time.Hour),
		TollBooth:     "TB-001",
		City:          "Taipei",
		State:         "TW",
		Amount:        40,
		VehicleType:   model.VehicleTypeCar,
	}
}

func TestCreateTollUsagesValidation(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*model.TollUsageInput)
		wantMsg string
	}{
		{
			name:    "使用時間為空",
			mutate:  func(u *model.TollUsageInput) { u.UsageDateTime = time.Time{} },
			wantMsg: "UsageDateTime cannot be empty",
		},
		{
			name:    "使用時間在未來",
			mutate:  func(u *model.TollUsageInput) { u.UsageDateTime = time.Now().UTC().Add(time.Hour) },
			wantMsg: "UsageDateTime cannot be in the future",
		},
		{
			name:    "金額為零",
			mutate:  func(u *model.TollUsageInput) { u.Amount = 0 },
			wantMsg: "Amount must be greater than 0",
		},
		{
			name:    "金額為負數",
			mutate:  func(u *model.TollUsageInput) { u.Amount = -10 },
			wantMsg: "Amount must be greater than 0",
		},
		{
			name:    "收費站為空",
			mutate:  func(u *model.TollUsageInput) { u.TollBooth = "" },
			wantMsg: "TollBooth is required",
		},
		{
			name:    "城市為空",
			mutate:  func(u *model.TollUsageInput) { u.City = "" },
			wantMsg: "City is required",
		},
		{
			name:    "州別為空",
			mutate:  func(u *model.TollUsageInput) { u.State = "" },
			wantMsg: "State is required",
		},
		{
			name:    "車種不在枚舉內",
			mutate:  func(u *model.TollUsageInput) { u.VehicleType = "bicycle" },
			wantMsg: "Invalid vehicle type: bicycle",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &fakeMessageSender{}
			svc := newTestTollUsageService(sender)

			invalid := validTollUsageInput()
			tc.mutate(&invalid)

			// 無效紀錄放在批次中間，確認整批被拒絕
			batch := []model.TollUsageInput{validTollUsageInput(), invalid, validTollUsageInput()}

			result, err := svc.CreateTollUsages(context.Background(), batch)
			if err != nil {
				t.Fatalf("驗證失敗不應回傳 error: %v", err)
			}
			if result.IsSuccess {
				t.Fatal("預期驗證失敗")
			}
			if result.Message != tc.wantMsg {
				t.Fatalf("預期訊息 %q, got %q", tc.wantMsg, result.Message)
			}
			if len(sender.published) != 0 {
				t.Fatalf("驗證失敗時不應發送任何訊息, got %d", len(sender.published))
			}
		})
	}
}

func TestCreateTollUsagesEmptyBatch(t *testing.T) {
	sender := &fakeMessageSender{}
	svc := newTestTollUsageService(sender)

	for _, batch := range [][]model.TollUsageInput{nil, {}} {
		result, err := svc.CreateTollUsages(context.Background(), batch)
		if err != nil {
			t.Fatalf("空批次不應回傳 error: %v", err)
		}
		if result.IsSuccess || result.Message != "No toll usages provided" {
			t.Fatalf("預期空批次被拒絕, got %+v", result)
		}
	}
	if len(sender.published) != 0 {
		t.Fatal("空批次不應發送任何訊息")
	}
}

func TestCreateTollUsagesSuccess(t *testing.T) {
	sender := &fakeMessageSender{}
	svc := newTestTollUsageService(sender)

	batch := []model.TollUsageInput{validTollUsageInput(), validTollUsageInput()}

	result, err := svc.CreateTollUsages(context.Background(), batch)
	if err != nil {
		t.Fatalf("不應回傳 error: %v", err)
	}
	if !result.IsSuccess {
		t.Fatalf("預期成功, got %+v", result)
	}
	if result.Data != "Toll Usages Creation Successfully Triggered" {
		t.Fatalf("預期觸發成功訊息, got %q", result.Data)
	}

	if len(sender.published) != 1 {
		t.Fatalf("預期發送一則訊息, got %d", len(sender.published))
	}
	if sender.published[0].queueName != infra.QueueNameTollUsages {
		t.Fatalf("預期發送到 %s, got %s", infra.QueueNameTollUsages, sender.published[0].queueName)
	}

	message, ok := sender.published[0].message.(model.TollUsageMessage)
	if !ok {
		t.Fatalf("預期 TollUsageMessage, got %T", sender.published[0].message)
	}
	if message.ID == "" {
		t.Fatal("訊息 ID 不應為空")
	}
	if len(message.TollUsages) != 2 {
		t.Fatalf("預期訊息包含 2 筆紀錄, got %d", len(message.TollUsages))
	}
}

func TestCreateTollUsagesPublishFailure(t *testing.T) {
	sender := &fakeMessageSender{publishErr: errors.New("broker down")}
	svc := newTestTollUsageService(sender)

	result, err := svc.CreateTollUsages(context.Background(), []model.TollUsageInput{validTollUsageInput()})
	if err != nil {
		t.Fatalf("發送失敗不應回傳 error: %v", err)
	}
	if result.IsSuccess || result.Message != "Error creating toll usage" {
		t.Fatalf("預期發送失敗結果, got %+v", result)
	}
}

func TestCreateTollUsagesContextCancelled(t *testing.T) {
	sender := &fakeMessageSender{}
	svc := newTestTollUsageService(sender)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreateTollUsages(ctx, []model.TollUsageInput{validTollUsageInput()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("預期 Canceled, got %v", err)
	}
	if len(sender.published) != 0 {
		t.Fatal("取消後不應發送任何訊息")
	}
}

func TestTriggerReportGenerationValidation(t *testing.T) {
	now := time.Now().UTC()
	zeroAmount := 0
	emptyBoothID := ""

	testCases := []struct {
		name       string
		startDate  time.Time
		endDate    time.Time
		reportType model.ReportType
		parameters model.ReportParameters
		wantMsg    string
	}{
		{
			name:       "報表種類未知",
			startDate:  now.Add(-24 * time.Hour),
			endDate:    now,
			reportType: "weekly_summary",
			wantMsg:    "Invalid report type",
		},
		{
			name:       "起始日期為空",
			endDate:    now,
			reportType: model.ReportTypeHourlyByCity,
			wantMsg:    "StartDate and EndDate are required",
		},
		{
			name:       "結束日期為空",
			startDate:  now.Add(-24 * time.Hour),
			reportType: model.ReportTypeHourlyByCity,
			wantMsg:    "StartDate and EndDate are required",
		},
		{
			name:       "起始日期在未來",
			startDate:  now.Add(48 * time.Hour),
			endDate:    now.Add(72 * time.Hour),
			reportType: model.ReportTypeHourlyByCity,
			wantMsg:    "StartDate cannot be in the future",
		},
		{
			name:       "起始日期晚於結束日期",
			startDate:  now.Add(-time.Hour),
			endDate:    now.Add(-24 * time.Hour),
			reportType: model.ReportTypeHourlyByCity,
			wantMsg:    "StartDate cannot be greater than endDate",
		},
		{
			name:       "排行報表缺少數量參數",
			startDate:  now.Add(-24 * time.Hour),
			endDate:    now,
			reportType: model.ReportTypeTopTollbooths,
			wantMsg:    "tollboothsAmount parameter is required for top tollbooths report",
		},
		{
			name:       "排行報表數量參數為零",
			startDate:  now.Add(-24 * time.Hour),
			endDate:    now,
			reportType: model.ReportTypeTopTollbooths,
			parameters: model.ReportParameters{TollboothsAmount: &zeroAmount},
			wantMsg:    "tollboothsAmount parameter must be greater than 0",
		},
		{
			name:       "車種報表缺少收費站參數",
			startDate:  now.Add(-24 * time.Hour),
			endDate:    now,
			reportType: model.ReportTypeVehicleTypesByTollbooth,
			wantMsg:    "tollBoothId parameter is required for vehicle types report",
		},
		{
			name:       "車種報表收費站參數為空字串",
			startDate:  now.Add(-24 * time.Hour),
			endDate:    now,
			reportType: model.ReportTypeVehicleTypesByTollbooth,
			parameters: model.ReportParameters{TollBoothID: &emptyBoothID},
			wantMsg:    "tollBoothId parameter is required for vehicle types report",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &fakeMessageSender{}
			svc := newTestTollUsageService(sender)

			result, err := svc.TriggerReportGeneration(context.Background(), tc.startDate, tc.endDate, tc.reportType, tc.parameters)
			if err != nil {
				t.Fatalf("驗證失敗不應回傳 error: %v", err)
			}
			if result.IsSuccess {
				t.Fatal("預期驗證失敗")
			}
			if result.Message != tc.wantMsg {
				t.Fatalf("預期訊息 %q, got %q", tc.wantMsg, result.Message)
			}
			if len(sender.published) != 0 {
				t.Fatal("驗證失敗時不應發送任何訊息")
			}
		})
	}
}

func TestTriggerReportGenerationSuccess(t *testing.T) {
	now := time.Now().UTC()
	amount := 5
	boothID := "TB-001"

	testCases := []struct {
		name       string
		reportType model.ReportType
		parameters model.ReportParameters
	}{
		{
			name:       "每小時城市總計報表",
			reportType: model.ReportTypeHourlyByCity,
		},
		{
			name:       "收費站排行報表",
			reportType: model.ReportTypeTopTollbooths,
			parameters: model.ReportParameters{TollboothsAmount: &amount},
		},
		{
			name:       "車種分佈報表",
			reportType: model.ReportTypeVehicleTypesByTollbooth,
			parameters: model.ReportParameters{TollBoothID: &boothID},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sender := &fakeMessageSender{}
			svc := newTestTollUsageService(sender)

			result, err := svc.TriggerReportGeneration(context.Background(), now.Add(-24*time.Hour), now, tc.reportType, tc.parameters)
			if err != nil {
				t.Fatalf("不應回傳 error: %v", err)
			}
			if !result.IsSuccess {
				t.Fatalf("預期成功, got %+v", result)
			}
			if result.Data != "Report Generation Successfully Triggered" {
				t.Fatalf("預期觸發成功訊息, got %q", result.Data)
			}

			if len(sender.published) != 1 {
				t.Fatalf("預期發送一則訊息, got %d", len(sender.published))
			}
			if sender.published[0].queueName != infra.QueueNameReportGeneration {
				t.Fatalf("預期發送到 %s, got %s", infra.QueueNameReportGeneration, sender.published[0].queueName)
			}

			message, ok := sender.published[0].message.(model.ReportGenerationMessage)
			if !ok {
				t.Fatalf("預期 ReportGenerationMessage, got %T", sender.published[0].message)
			}
			if message.ID == "" {
				t.Fatal("訊息 ID 不應為空")
			}
			if message.ReportType != tc.reportType {
				t.Fatalf("預期報表種類 %s, got %s", tc.reportType, message.ReportType)
			}
			if message.GeneratedAt.IsZero() {
				t.Fatal("GeneratedAt 不應為空")
			}
		})
	}
}
