package ledger

import (
	"errors"
	"fmt"
)

// Common ledger errors
// 共通の台帳エラー定義

var (
	// ErrInventoryNotFound is returned when no inventory row exists for a product
	// 商品の在庫記録が存在しない場合のエラー
	ErrInventoryNotFound = errors.New("在庫記録が見つかりません")

	// ErrInvalidQuantity is returned when a non-positive quantity is passed to
	// an operation that treats bad input as a caller bug
	// 非正の数量が渡された場合のエラー
	ErrInvalidQuantity = errors.New("数量は正の値である必要があります")

	// ErrInsufficientReservation is returned when releasing more than is reserved.
	// This indicates upstream bookkeeping gone wrong (e.g. a double release).
	// 予約量を超えて解除しようとした場合のエラー
	ErrInsufficientReservation = errors.New("解除する予約在庫が不足しています")

	// ErrVersionMismatch is returned when the conditional update loses to a
	// concurrent writer on the same row
	// 楽観的ロック失敗時のエラー
	ErrVersionMismatch = errors.New("バージョンが一致しません。他の書き込みによって更新されています")

	// ErrDuplicateInventory is returned when registering stock for a product
	// that already has an inventory row
	// 既に在庫記録が存在する商品を登録しようとした場合のエラー
	ErrDuplicateInventory = errors.New("在庫記録は既に存在します")

	// ErrDiscontinued is returned when an administrative operation requires a
	// non-discontinued inventory
	// 廃番の在庫に対する操作のエラー
	ErrDiscontinued = errors.New("廃番の在庫です")
)

// ValidationError represents a validation error with details
// 詳細付きバリデーションエラーを表現
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

// StateError represents an operation applied in an invalid entity state
// 無効な状態で適用された操作を表現
type StateError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e StateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("状態エラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("状態エラー [%s]: %s", e.Operation, e.Message)
}

func (e StateError) Unwrap() error {
	return e.Cause
}

// StorageError represents a storage layer error
// ストレージ層のエラーを表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e StorageError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewStateError creates a new state error
// 新しい状態エラーを作成
func NewStateError(operation, message string, cause error) *StateError {
	return &StateError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
