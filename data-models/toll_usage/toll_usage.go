package toll_usage

import (
	"time"
	"toll-backend/model"
)

type CreateTollUsagesInput struct {
	Body []model.TollUsageInput `doc:"Batch of toll usage records to ingest"`
}

type CreateTollUsagesResponse struct {
	Body model.OperationResult[string]
}

type GenerateReportBody struct {
	StartDate  time.Time              `json:"start_date" doc:"Report range start (inclusive)"`
	EndDate    time.Time              `json:"end_date" doc:"Report range end (inclusive)"`
	ReportType model.ReportType       `json:"report_type" enum:"hourly_by_city,top_tollbooths,vehicle_types_by_tollbooth" doc:"Kind of report to generate"`
	Parameters model.ReportParameters `json:"parameters,omitempty" doc:"Report-type specific parameters"`
}

type GenerateReportInput struct {
	Body GenerateReportBody
}

type GenerateReportResponse struct {
	Body model.OperationResult[string]
}
