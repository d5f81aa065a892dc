package infra

// QueueName 定義 RabbitMQ 隊列名稱的枚舉類型
type QueueName string

const (
	// QueueNameTollUsages 通行紀錄批次隊列
	QueueNameTollUsages QueueName = "toll_usages_queue"

	// QueueNameReportGeneration 報表產生隊列
	QueueNameReportGeneration QueueName = "report_generation_queue"
)

// String 實現 Stringer 接口，返回隊列名稱字符串
func (qn QueueName) String() string {
	return string(qn)
}

// GetAllQueueNames 返回所有定義的隊列名稱
func GetAllQueueNames() []QueueName {
	return []QueueName{
		QueueNameTollUsages,
		QueueNameReportGeneration,
	}
}
