package ledger

import (
	"context"
	"time"
)

// StockLedger defines the core interface for the inventory stock ledger
// 在庫台帳のコアインターフェースを定義
type StockLedger interface {
	// 数量操作 - Quantity operations
	Reserve(ctx context.Context, productID string, quantity int64, reference string) (bool, error)
	Release(ctx context.Context, productID string, quantity int64, reference string) error
	Deduct(ctx context.Context, productID string, quantity int64, reference string) (bool, error)
	Restock(ctx context.Context, productID string, quantity int64, reference string) error

	// 可用性照会 - Availability queries
	CheckAvailability(ctx context.Context, productID string, quantity int64) (*Availability, error)
	GetInventory(ctx context.Context, productID string) (*InventoryRecord, error)
	GetSupplierInventory(ctx context.Context, supplierID, productID string) (*InventoryRecord, error)

	// ライフサイクル管理 - Lifecycle management
	RegisterStock(ctx context.Context, cmd RegisterStockCommand) (*InventoryRecord, error)
	UpdateInventory(ctx context.Context, cmd UpdateInventoryCommand) (*InventoryRecord, error)
	Discontinue(ctx context.Context, productID string) error

	// 補充検知 - Reorder detection
	ListNeedingReorder(ctx context.Context) ([]ReorderSuggestion, error)

	// 履歴・レポート - History and reporting
	History(ctx context.Context, productID string, limit int) ([]StockMovement, error)
	Stats(ctx context.Context) (*LedgerStats, error)
}

// RegisterStockCommand carries the fields for creating an inventory row
// 在庫行作成のためのフィールドを保持
type RegisterStockCommand struct {
	SupplierID        string `json:"supplier_id"`
	ProductID         string `json:"product_id"`
	VariantID         string `json:"variant_id,omitempty"`
	InitialQuantity   int64  `json:"initial_quantity"`
	ReorderLevel      *int64 `json:"reorder_level,omitempty"`
	ReorderQuantity   *int64 `json:"reorder_quantity,omitempty"`
	WarehouseLocation string `json:"warehouse_location,omitempty"`
}

// UpdateInventoryCommand carries administrative field updates. Nil pointers
// leave the corresponding field untouched.
// 管理用のフィールド更新を保持
type UpdateInventoryCommand struct {
	ProductID         string  `json:"product_id"`
	AvailableQuantity *int64  `json:"available_quantity,omitempty"`
	ReorderLevel      *int64  `json:"reorder_level,omitempty"`
	ReorderQuantity   *int64  `json:"reorder_quantity,omitempty"`
	WarehouseLocation *string `json:"warehouse_location,omitempty"`
}

// Repository defines the persistence boundary for inventory rows. Save must
// uphold the at-most-one-writer guarantee per row via its version check.
// 在庫行の永続化境界を定義
type Repository interface {
	// Inventory rows
	Create(ctx context.Context, rec *InventoryRecord) error
	Save(ctx context.Context, rec *InventoryRecord) error
	FindByID(ctx context.Context, id string) (*InventoryRecord, error)
	FindByProductID(ctx context.Context, productID string) (*InventoryRecord, error)
	FindBySupplierIDAndProductID(ctx context.Context, supplierID, productID string) (*InventoryRecord, error)
	FindBySupplierID(ctx context.Context, supplierID string) ([]InventoryRecord, error)
	FindByStatus(ctx context.Context, status InventoryStatus) ([]InventoryRecord, error)
	FindAll(ctx context.Context) ([]InventoryRecord, error)
	FindInventoryNeedingReorder(ctx context.Context) ([]InventoryRecord, error)

	// Administrative and reporting
	ExistsByProductID(ctx context.Context, productID string) (bool, error)
	DeleteByID(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status InventoryStatus) (int64, error)

	// Movement journal
	CreateMovement(ctx context.Context, movement *StockMovement) error
	ListMovements(ctx context.Context, productID string, limit int) ([]StockMovement, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher defines the interface for publishing ledger events
// 台帳イベント発行のインターフェースを定義
type EventPublisher interface {
	PublishStockChanged(ctx context.Context, event StockChangedEvent) error
	PublishLowStock(ctx context.Context, event LowStockEvent) error
}

// Events for ledger operations
// 台帳操作のイベント定義

// StockChangedEvent represents a quantity mutation on an inventory row
// 在庫行の数量変更イベントを表現
type StockChangedEvent struct {
	InventoryID  string          `json:"inventory_id"`
	ProductID    string          `json:"product_id"`
	MovementType MovementType    `json:"movement_type"`
	Quantity     int64           `json:"quantity"`
	Available    int64           `json:"available"`
	Reserved     int64           `json:"reserved"`
	Status       InventoryStatus `json:"status"`
	Reference    string          `json:"reference"`
	Timestamp    time.Time       `json:"timestamp"`
}

// LowStockEvent represents an advisory low stock or reorder notification
// 低在庫・補充推奨の通知イベントを表現
type LowStockEvent struct {
	InventoryID  string    `json:"inventory_id"`
	ProductID    string    `json:"product_id"`
	TotalStock   int64     `json:"total_stock"`
	ReorderLevel int64     `json:"reorder_level"`
	Timestamp    time.Time `json:"timestamp"`
}
