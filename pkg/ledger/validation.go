package ledger

import (
	"fmt"
	"regexp"
	"strings"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateProductID 商品IDの形式をバリデーション
func ValidateProductID(productID string) error {
	if productID == "" {
		return NewValidationError("product_id", "商品IDが空です", productID)
	}
	if len(productID) > 255 {
		return NewValidationError("product_id", "商品IDが長すぎます", productID)
	}
	// 英数字、ハイフン、アンダースコアのみ許可
	if !idPattern.MatchString(productID) {
		return NewValidationError("product_id", "商品IDに無効な文字が含まれています", productID)
	}
	return nil
}

// ValidateSupplierID サプライヤーIDの形式をバリデーション
func ValidateSupplierID(supplierID string) error {
	if supplierID == "" {
		return NewValidationError("supplier_id", "サプライヤーIDが空です", supplierID)
	}
	if len(supplierID) > 255 {
		return NewValidationError("supplier_id", "サプライヤーIDが長すぎます", supplierID)
	}
	if !idPattern.MatchString(supplierID) {
		return NewValidationError("supplier_id", "サプライヤーIDに無効な文字が含まれています", supplierID)
	}
	return nil
}

// ValidateVariantID バリアントIDの形式をバリデーション（任意フィールド）
func ValidateVariantID(variantID string) error {
	if variantID == "" {
		return nil // バリアントIDは任意
	}
	if len(variantID) > 255 {
		return NewValidationError("variant_id", "バリアントIDが長すぎます", variantID)
	}
	if !idPattern.MatchString(variantID) {
		return NewValidationError("variant_id", "バリアントIDに無効な文字が含まれています", variantID)
	}
	return nil
}

// ValidateQuantity 数量をバリデーション
func ValidateQuantity(quantity int64) error {
	if quantity <= 0 {
		return NewValidationError("quantity", "数量は正の値である必要があります", formatInt(quantity))
	}
	if quantity > 999999999 {
		return NewValidationError("quantity", "数量が有効範囲を超えています", formatInt(quantity))
	}
	return nil
}

// ValidateWarehouseLocation 倉庫ロケーションをバリデーション（任意フィールド）
func ValidateWarehouseLocation(location string) error {
	if location == "" {
		return nil // 倉庫ロケーションは任意
	}
	if len(strings.TrimSpace(location)) == 0 {
		return NewValidationError("warehouse_location", "倉庫ロケーションが空白のみです", location)
	}
	if len(location) > 500 {
		return NewValidationError("warehouse_location", "倉庫ロケーションが長すぎます", location)
	}
	return nil
}

// ValidateReference 参照番号の形式をバリデーション（任意フィールド）
func ValidateReference(reference string) error {
	if reference == "" {
		return nil // 参照番号は任意
	}
	if len(reference) > 500 {
		return NewValidationError("reference", "参照番号が長すぎます", reference)
	}
	return nil
}

func formatInt(v int64) string {
	return fmt.Sprintf("%d", v)
}
