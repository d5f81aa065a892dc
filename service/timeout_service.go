package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TimeoutService 為核心操作套上固定期限，與呼叫端的取消訊號合併後先到者生效
type TimeoutService struct {
	logger  zerolog.Logger
	timeout time.Duration
}

func NewTimeoutService(logger zerolog.Logger, timeout time.Duration) *TimeoutService {
	return &TimeoutService{
		logger:  logger.With().Str("module", "timeout_service").Logger(),
		timeout: timeout,
	}
}

// Timeout 返回設定的逾時時間
func (s *TimeoutService) Timeout() time.Duration {
	return s.timeout
}

// Execute 在內部期限內執行操作。內部期限先到時記錄警告後回傳錯誤，
// 外部取消先到時靜默回傳（那是呼叫端自己的取消，不是逾時）。
func (s *TimeoutService) Execute(ctx context.Context, operationName string, operation func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := operation(opCtx)
	if err != nil && opCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		s.logger.Warn().
			Str("operation", operationName).
			Dur("timeout", s.timeout).
			Msg("操作逾時 (Operation timed out)")
	}
	return err
}

// ExecuteWithTimeout 是 Execute 的泛型版本，供需要回傳值的操作使用
func ExecuteWithTimeout[T any](s *TimeoutService, ctx context.Context, operationName string, operation func(context.Context) (T, error)) (T, error) {
	var result T
	err := s.Execute(ctx, operationName, func(opCtx context.Context) error {
		var opErr error
		result, opErr = operation(opCtx)
		return opErr
	})
	return result, err
}
