package model

import (
	"time"
)

// VehicleType 定義車輛類型的封閉枚舉
type VehicleType string

const (
	VehicleTypeMotorcycle VehicleType = "motorcycle" // 二輪車
	VehicleTypeCar        VehicleType = "car"        // 小客車
	VehicleTypeTruck      VehicleType = "truck"      // 卡車
)

// IsValid 檢查車輛類型是否在封閉枚舉內
func (vt VehicleType) IsValid() bool {
	switch vt {
	case VehicleTypeMotorcycle, VehicleTypeCar, VehicleTypeTruck:
		return true
	}
	return false
}

// TollUsage 通行紀錄，寫入後不可變更
type TollUsage struct {
	ID            string      `bson:"_id" json:"id"`
	UsageDateTime time.Time   `bson:"usage_date_time" json:"usage_date_time"`
	TollBooth     string      `bson:"toll_booth" json:"toll_booth"`
	City          string      `bson:"city" json:"city"`
	State         string      `bson:"state" json:"state"`
	Amount        float64     `bson:"amount" json:"amount"`
	VehicleType   VehicleType `bson:"vehicle_type" json:"vehicle_type"`
	CreatedAt     time.Time   `bson:"created_at" json:"created_at"`
}

// TollUsageInput 通行紀錄的建立輸入，ID 為空時由消費端補發
type TollUsageInput struct {
	ID            string      `json:"id,omitempty" doc:"Record ID, assigned at ingestion if absent"`
	UsageDateTime time.Time   `json:"usage_date_time" doc:"Time of usage, must not be in the future"`
	TollBooth     string      `json:"toll_booth" doc:"Tollbooth identifier"`
	City          string      `json:"city" doc:"City of the tollbooth"`
	State         string      `json:"state" doc:"State/region code"`
	Amount        float64     `json:"amount" doc:"Toll amount, must be greater than 0"`
	VehicleType   VehicleType `json:"vehicle_type" enum:"motorcycle,car,truck" doc:"Vehicle category"`
}
