package utils

import "time"

// NowUTC 取得當前 UTC 時間（用於存儲到 MongoDB）
func NowUTC() time.Time {
	return time.Now().UTC()
}

// TruncateToHour 將時間截斷到整點（分、秒、奈秒歸零）
func TruncateToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// MonthRange 取得指定時間所在月份的範圍：當月第一天 00:00（含）到下月第一天 00:00（不含）
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0)
	return start, end
}
