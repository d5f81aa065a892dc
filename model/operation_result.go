package model

// OperationResult 核心操作的統一回傳格式，成功帶資料、失敗帶訊息
type OperationResult[T any] struct {
	IsSuccess bool   `json:"is_success"`
	Data      T      `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Success 建立成功結果
func Success[T any](data T) OperationResult[T] {
	return OperationResult[T]{IsSuccess: true, Data: data}
}

// Failure 建立失敗結果
func Failure[T any](message string) OperationResult[T] {
	return OperationResult[T]{IsSuccess: false, Message: message}
}
