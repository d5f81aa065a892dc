package model

import (
	"time"
)

// TollUsageMessage 通行紀錄批次訊息，整批作為一個邏輯單位投遞
type TollUsageMessage struct {
	ID         string           `json:"id"`
	TollUsages []TollUsageInput `json:"toll_usages"`
}

// ReportGenerationMessage 報表產生訊息
type ReportGenerationMessage struct {
	ID          string           `json:"id"`
	GeneratedAt time.Time        `json:"generated_at"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     time.Time        `json:"end_date"`
	ReportType  ReportType       `json:"report_type"`
	Parameters  ReportParameters `json:"parameters"`
}
