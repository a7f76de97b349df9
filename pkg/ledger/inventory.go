package ledger

import (
	"time"
)

// NewInventory creates the inventory row for a supplier's product. The row
// starts with the supplied initial quantity, nothing reserved, and a derived
// status.
// サプライヤーの商品に対する在庫行を作成
func NewInventory(supplierID, productID, variantID string, initialQuantity int64, reorderLevel, reorderQuantity *int64, warehouseLocation string) (*Inventory, error) {
	if err := ValidateSupplierID(supplierID); err != nil {
		return nil, err
	}
	if err := ValidateProductID(productID); err != nil {
		return nil, err
	}
	if initialQuantity < 0 {
		return nil, NewValidationError("initial_quantity", "初期数量は0以上である必要があります", formatInt(initialQuantity))
	}
	if reorderLevel != nil && *reorderLevel < 0 {
		return nil, NewValidationError("reorder_level", "補充閾値は0以上である必要があります", formatInt(*reorderLevel))
	}
	if reorderQuantity != nil && *reorderQuantity < 0 {
		return nil, NewValidationError("reorder_quantity", "補充数量は0以上である必要があります", formatInt(*reorderQuantity))
	}

	inv := &Inventory{
		id:                NewInventoryID(),
		supplierID:        supplierID,
		productID:         productID,
		variantID:         variantID,
		availableQuantity: initialQuantity,
		reservedQuantity:  0,
		reorderLevel:      copyInt(reorderLevel),
		reorderQuantity:   copyInt(reorderQuantity),
		warehouseLocation: warehouseLocation,
		lastUpdated:       time.Now(),
		version:           1,
	}
	inv.updateStatus()
	return inv, nil
}

// FromRecord rebuilds an Inventory from its persisted snapshot
// 永続化されたスナップショットからInventoryを再構築
func FromRecord(rec InventoryRecord) *Inventory {
	return &Inventory{
		id:                rec.ID,
		supplierID:        rec.SupplierID,
		productID:         rec.ProductID,
		variantID:         rec.VariantID,
		availableQuantity: rec.AvailableQuantity,
		reservedQuantity:  rec.ReservedQuantity,
		reorderLevel:      copyInt(rec.ReorderLevel),
		reorderQuantity:   copyInt(rec.ReorderQuantity),
		warehouseLocation: rec.WarehouseLocation,
		lastRestocked:     copyTime(rec.LastRestocked),
		lastUpdated:       rec.LastUpdated,
		status:            rec.Status,
		version:           rec.Version,
	}
}

// Record returns the serializable snapshot of the inventory
// 在庫のシリアライズ可能なスナップショットを返す
func (inv *Inventory) Record() InventoryRecord {
	return InventoryRecord{
		ID:                inv.id,
		SupplierID:        inv.supplierID,
		ProductID:         inv.productID,
		VariantID:         inv.variantID,
		AvailableQuantity: inv.availableQuantity,
		ReservedQuantity:  inv.reservedQuantity,
		ReorderLevel:      copyInt(inv.reorderLevel),
		ReorderQuantity:   copyInt(inv.reorderQuantity),
		WarehouseLocation: inv.warehouseLocation,
		LastRestocked:     copyTime(inv.lastRestocked),
		LastUpdated:       inv.lastUpdated,
		Status:            inv.status,
		Version:           inv.version,
	}
}

// Accessors
// アクセサ

func (inv *Inventory) ID() string                 { return inv.id }
func (inv *Inventory) SupplierID() string         { return inv.supplierID }
func (inv *Inventory) ProductID() string          { return inv.productID }
func (inv *Inventory) VariantID() string          { return inv.variantID }
func (inv *Inventory) AvailableQuantity() int64   { return inv.availableQuantity }
func (inv *Inventory) ReservedQuantity() int64    { return inv.reservedQuantity }
func (inv *Inventory) ReorderLevel() *int64       { return copyInt(inv.reorderLevel) }
func (inv *Inventory) ReorderQuantity() *int64    { return copyInt(inv.reorderQuantity) }
func (inv *Inventory) WarehouseLocation() string  { return inv.warehouseLocation }
func (inv *Inventory) LastRestocked() *time.Time  { return copyTime(inv.lastRestocked) }
func (inv *Inventory) LastUpdated() time.Time     { return inv.lastUpdated }
func (inv *Inventory) Status() InventoryStatus    { return inv.status }
func (inv *Inventory) Version() int64             { return inv.version }

// TotalStock returns available plus reserved quantity
// 利用可能数量と予約済み数量の合計を返す
func (inv *Inventory) TotalStock() int64 {
	return inv.availableQuantity + inv.reservedQuantity
}

// HasSufficientStock reports whether the requested quantity can be reserved.
// Pure query: invalid input yields false, never an error.
// 要求数量を予約できるかどうかを返す
func (inv *Inventory) HasSufficientStock(quantity int64) bool {
	if quantity <= 0 {
		return false
	}
	return inv.availableQuantity >= quantity
}

// ReserveStock moves quantity from available to reserved for a pending order.
// Insufficient stock is an expected runtime outcome (concurrent oversell
// attempts), so failure is a boolean, not an error, and leaves the quantities
// untouched.
// 保留中の注文のために数量を利用可能から予約済みへ移動
func (inv *Inventory) ReserveStock(quantity int64) bool {
	if quantity <= 0 {
		return false
	}
	if !inv.HasSufficientStock(quantity) {
		return false
	}

	inv.availableQuantity -= quantity
	inv.reservedQuantity += quantity
	inv.lastUpdated = time.Now()
	inv.updateStatus()
	return true
}

// ReleaseReservedStock moves quantity from reserved back to available when an
// order is cancelled. Releasing more than is reserved means the caller's
// bookkeeping is broken, so this fails loudly instead of absorbing it.
// 注文キャンセル時に数量を予約済みから利用可能へ戻す
func (inv *Inventory) ReleaseReservedStock(quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if inv.reservedQuantity < quantity {
		return ErrInsufficientReservation
	}

	inv.reservedQuantity -= quantity
	inv.availableQuantity += quantity
	inv.lastUpdated = time.Now()
	inv.updateStatus()
	return nil
}

// DeductStock removes fulfilled units from the reserved quantity on shipment.
// Available quantity is never touched.
// 出荷時に予約済み数量から履行済みユニットを削除
func (inv *Inventory) DeductStock(quantity int64) bool {
	if quantity <= 0 {
		return false
	}
	if inv.reservedQuantity < quantity {
		return false
	}

	inv.reservedQuantity -= quantity
	inv.lastUpdated = time.Now()
	inv.updateStatus()
	return true
}

// RestockInventory adds newly received units to the available quantity
// 新しく入荷したユニットを利用可能数量に追加
func (inv *Inventory) RestockInventory(quantity int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	inv.availableQuantity += quantity
	now := time.Now()
	inv.lastRestocked = &now
	inv.lastUpdated = now
	inv.updateStatus()
	return nil
}

// NeedsReorder reports whether total stock has fallen to or below the reorder
// level. Advisory only: acting on it is the procurement caller's job.
// 総在庫が補充閾値以下かどうかを返す
func (inv *Inventory) NeedsReorder() bool {
	if inv.status == StatusDiscontinued {
		return false
	}
	if inv.reorderLevel == nil {
		return false
	}
	return inv.TotalStock() <= *inv.reorderLevel
}

// IsAvailableForOrder reports whether the inventory accepts new reservations
// 新しい予約を受け付けるかどうかを返す
func (inv *Inventory) IsAvailableForOrder() bool {
	return inv.status == StatusAvailable || inv.status == StatusLowStock
}

// Discontinue marks the inventory as discontinued. From here on the status is
// sticky: no quantity operation recomputes it.
// 在庫を廃番としてマーク
func (inv *Inventory) Discontinue() {
	inv.status = StatusDiscontinued
	inv.lastUpdated = time.Now()
}

// AdjustAvailable sets the available quantity to an administratively supplied
// value. The new value may not undercut what is already reserved.
// 利用可能数量を管理者指定の値に設定
func (inv *Inventory) AdjustAvailable(quantity int64) error {
	if quantity < 0 {
		return NewValidationError("available_quantity", "利用可能数量は0以上である必要があります", formatInt(quantity))
	}
	if quantity < inv.reservedQuantity {
		return NewStateError("adjust_available", "利用可能数量は予約済み数量を下回れません", ErrInsufficientReservation)
	}

	inv.availableQuantity = quantity
	inv.lastUpdated = time.Now()
	inv.updateStatus()
	return nil
}

// UpdateReorderPolicy replaces the advisory replenishment thresholds
// 補充閾値の設定を更新
func (inv *Inventory) UpdateReorderPolicy(reorderLevel, reorderQuantity *int64) error {
	if reorderLevel != nil && *reorderLevel < 0 {
		return NewValidationError("reorder_level", "補充閾値は0以上である必要があります", formatInt(*reorderLevel))
	}
	if reorderQuantity != nil && *reorderQuantity < 0 {
		return NewValidationError("reorder_quantity", "補充数量は0以上である必要があります", formatInt(*reorderQuantity))
	}

	inv.reorderLevel = copyInt(reorderLevel)
	inv.reorderQuantity = copyInt(reorderQuantity)
	inv.lastUpdated = time.Now()
	inv.updateStatus()
	return nil
}

// SetWarehouseLocation updates the informational warehouse location
// 倉庫ロケーションを更新
func (inv *Inventory) SetWarehouseLocation(location string) {
	inv.warehouseLocation = location
	inv.lastUpdated = time.Now()
}

// updateStatus recomputes the derived status from the current quantities.
// DISCONTINUED is sticky and never recomputed automatically.
// 現在の数量から導出ステータスを再計算
func (inv *Inventory) updateStatus() {
	if inv.status == StatusDiscontinued {
		return
	}

	switch {
	case inv.availableQuantity == 0:
		inv.status = StatusOutOfStock
	case inv.reorderLevel != nil && inv.availableQuantity <= *inv.reorderLevel:
		inv.status = StatusLowStock
	default:
		inv.status = StatusAvailable
	}
}

// ヘルパー関数

func copyInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
