// Package ledger provides the inventory stock ledger
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// InventoryStatus represents the derived availability status of an inventory
// 在庫の導出された可用性ステータスを表現
type InventoryStatus string

const (
	StatusAvailable    InventoryStatus = "AVAILABLE"    // 在庫あり
	StatusLowStock     InventoryStatus = "LOW_STOCK"    // 低在庫
	StatusOutOfStock   InventoryStatus = "OUT_OF_STOCK" // 在庫切れ
	StatusDiscontinued InventoryStatus = "DISCONTINUED" // 廃番（手動設定のみ）
)

// Valid reports whether s is a known inventory status
// 既知の在庫ステータスかどうかを返す
func (s InventoryStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusLowStock, StatusOutOfStock, StatusDiscontinued:
		return true
	}
	return false
}

// Inventory is the aggregate root tracking stock for one supplier/product pair.
// Quantities are mutated only through the ledger operations so that the
// conservation invariants always hold.
// 1つのサプライヤー/商品ペアの在庫を追跡する集約ルート
type Inventory struct {
	id                string
	supplierID        string
	productID         string
	variantID         string // 任意（バリアントなしの場合は空）
	availableQuantity int64
	reservedQuantity  int64
	reorderLevel      *int64 // 任意の補充閾値（nilは未設定）
	reorderQuantity   *int64 // 任意の推奨補充数量
	warehouseLocation string
	lastRestocked     *time.Time
	lastUpdated       time.Time
	status            InventoryStatus
	version           int64 // 楽観的ロック用バージョン
}

// InventoryRecord is the serializable snapshot of an Inventory. It carries
// every field so that any persistence or wire format round-trips losslessly.
// Inventoryのシリアライズ可能なスナップショット
type InventoryRecord struct {
	ID                string          `json:"id" db:"id"`                                 // 在庫ID
	SupplierID        string          `json:"supplier_id" db:"supplier_id"`               // サプライヤーID
	ProductID         string          `json:"product_id" db:"product_id"`                 // 商品ID
	VariantID         string          `json:"variant_id,omitempty" db:"variant_id"`       // バリアントID（任意）
	AvailableQuantity int64           `json:"available_quantity" db:"available_quantity"` // 利用可能数量
	ReservedQuantity  int64           `json:"reserved_quantity" db:"reserved_quantity"`   // 予約済み数量
	ReorderLevel      *int64          `json:"reorder_level" db:"reorder_level"`           // 補充閾値
	ReorderQuantity   *int64          `json:"reorder_quantity" db:"reorder_quantity"`     // 補充数量
	WarehouseLocation string          `json:"warehouse_location" db:"warehouse_location"` // 倉庫ロケーション
	LastRestocked     *time.Time      `json:"last_restocked" db:"last_restocked"`         // 最終補充日時
	LastUpdated       time.Time       `json:"last_updated" db:"last_updated"`             // 最終更新日時
	Status            InventoryStatus `json:"status" db:"status"`                         // ステータス
	Version           int64           `json:"version" db:"version"`                       // バージョン
}

// StockMovement records one quantity mutation applied to an inventory row
// 在庫行に適用された1つの数量変更を記録
type StockMovement struct {
	ID          string       `json:"id" db:"id"`                     // 移動ID
	InventoryID string       `json:"inventory_id" db:"inventory_id"` // 在庫ID
	ProductID   string       `json:"product_id" db:"product_id"`     // 商品ID
	Type        MovementType `json:"type" db:"type"`                 // 移動タイプ
	Quantity    int64        `json:"quantity" db:"quantity"`         // 数量
	Reference   string       `json:"reference" db:"reference"`       // 参照番号（注文番号など）
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`     // 作成日時
}

// MovementType defines the kind of ledger mutation
// 台帳変更の種類を定義
type MovementType string

const (
	MovementTypeRegister MovementType = "register" // 初期登録
	MovementTypeReserve  MovementType = "reserve"  // 予約
	MovementTypeRelease  MovementType = "release"  // 予約解除
	MovementTypeDeduct   MovementType = "deduct"   // 出荷控除
	MovementTypeRestock  MovementType = "restock"  // 補充
	MovementTypeAdjust   MovementType = "adjust"   // 管理調整
)

// ReorderSuggestion pairs an inventory snapshot with its advisory reorder data.
// The ledger never acts on it; acting is the procurement caller's job.
// 在庫スナップショットと補充推奨データの組
type ReorderSuggestion struct {
	Inventory       InventoryRecord `json:"inventory"`
	TotalStock      int64           `json:"total_stock"`
	ReorderLevel    int64           `json:"reorder_level"`
	ReorderQuantity int64           `json:"reorder_quantity"` // 未設定の場合は0
}

// LedgerStats holds administrative counts for reporting
// レポート用の管理カウントを保持
type LedgerStats struct {
	Total    int64                     `json:"total"`
	ByStatus map[InventoryStatus]int64 `json:"by_status"`
}

// Availability is the read-only answer to an availability check. A missing
// inventory row degrades to an unavailable result instead of an error.
// 在庫確認クエリの読み取り専用の結果
type Availability struct {
	ProductID          string          `json:"product_id"`
	AvailableForOrder  bool            `json:"available_for_order"`
	HasSufficientStock bool            `json:"has_sufficient_stock"`
	AvailableQuantity  int64           `json:"available_quantity"`
	Status             InventoryStatus `json:"status"`
}

// NewInventoryID generates a new inventory ID
// 新しい在庫IDを生成
func NewInventoryID() string {
	return uuid.New().String()
}

// NewMovementID generates a new stock movement ID
// 新しい在庫移動IDを生成
func NewMovementID() string {
	return uuid.New().String()
}
