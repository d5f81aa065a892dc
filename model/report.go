package model

import (
	"time"
)

// ReportType 定義報表種類的封閉枚舉
type ReportType string

const (
	// ReportTypeHourlyByCity 各城市每小時通行金額總計
	ReportTypeHourlyByCity ReportType = "hourly_by_city"

	// ReportTypeTopTollbooths 當月營收前 N 名收費站
	ReportTypeTopTollbooths ReportType = "top_tollbooths"

	// ReportTypeVehicleTypesByTollbooth 單一收費站的車種分佈
	ReportTypeVehicleTypesByTollbooth ReportType = "vehicle_types_by_tollbooth"
)

// IsValid 檢查報表種類是否在封閉枚舉內
func (rt ReportType) IsValid() bool {
	switch rt {
	case ReportTypeHourlyByCity, ReportTypeTopTollbooths, ReportTypeVehicleTypesByTollbooth:
		return true
	}
	return false
}

// ReportParameters 報表參數，依報表種類驗證必填欄位
type ReportParameters struct {
	// TollboothsAmount top_tollbooths 報表必填，取前 N 名
	TollboothsAmount *int `json:"tollbooths_amount,omitempty" doc:"Number of tollbooths for the top_tollbooths report"`

	// TollBoothID vehicle_types_by_tollbooth 報表必填
	TollBoothID *string `json:"toll_booth_id,omitempty" doc:"Tollbooth identifier for the vehicle_types_by_tollbooth report"`
}

// HourlyTotal 單一城市在某個整點小時的金額總計
type HourlyTotal struct {
	Hour  time.Time `bson:"hour" json:"hour"`
	Total float64   `bson:"total" json:"total"`
}

// TollboothTotal 單一收費站的金額總計，Top N 查詢中相同金額的排序不保證穩定
type TollboothTotal struct {
	TollBooth   string  `bson:"_id" json:"toll_booth"`
	TotalAmount float64 `bson:"total" json:"total_amount"`
}

// TollReport 落地到 toll_reports 集合的報表文件
type TollReport struct {
	ReportType  ReportType  `bson:"report_type" json:"report_type"`
	Data        interface{} `bson:"data" json:"data"`
	GeneratedAt time.Time   `bson:"generated_at" json:"generated_at"`
	CreatedAt   time.Time   `bson:"created_at" json:"created_at"`
}
