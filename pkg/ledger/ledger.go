package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Ledger implements the StockLedger interface
// StockLedgerインターフェースの実装
type Ledger struct {
	repo      Repository     // 永続化層
	publisher EventPublisher // イベント発行者
	logger    *zap.Logger    // ログ
	config    *Config        // 設定
}

// すべてのインターフェースを実装することを明示
var _ StockLedger = (*Ledger)(nil)

// Config holds configuration for the stock ledger
// 在庫台帳の設定を保持
type Config struct {
	MaxRetries          int  `yaml:"max_retries"`           // 競合時の最大再試行回数
	JournalEnabled      bool `yaml:"journal_enabled"`       // 在庫移動記録の有効化
	DefaultHistoryLimit int  `yaml:"default_history_limit"` // 履歴取得のデフォルト件数
}

// NewLedger creates a new stock ledger
// 新しい在庫台帳を作成
func NewLedger(repo Repository, publisher EventPublisher, logger *zap.Logger, config *Config) *Ledger {
	if config == nil {
		config = &Config{
			MaxRetries:          3,
			JournalEnabled:      true,
			DefaultHistoryLimit: 50,
		}
	}

	return &Ledger{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		config:    config,
	}
}

// Reserve holds quantity against a pending order. The availability check and
// the commit happen against the same row version, so a concurrent writer
// forces a reload instead of driving the quantity negative. An insufficient
// balance is an expected outcome and reported as false, not as an error.
// 保留中の注文のために数量を予約
func (l *Ledger) Reserve(ctx context.Context, productID string, quantity int64, reference string) (bool, error) {
	if err := ValidateProductID(productID); err != nil {
		return false, err
	}
	if quantity <= 0 {
		reservationsRejected.WithLabelValues("invalid_quantity").Inc()
		return false, nil
	}

	for attempt := 0; attempt <= l.config.MaxRetries; attempt++ {
		rec, err := l.repo.FindByProductID(ctx, productID)
		if err != nil {
			return false, err
		}

		inv := FromRecord(*rec)
		if !inv.IsAvailableForOrder() {
			reservationsRejected.WithLabelValues("not_orderable").Inc()
			return false, nil
		}
		if !inv.ReserveStock(quantity) {
			reservationsRejected.WithLabelValues("insufficient_stock").Inc()
			return false, nil
		}

		out := inv.Record()
		if err := l.repo.Save(ctx, &out); err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				// 同時書き込みに負けたため再読込して再試行
				versionConflicts.WithLabelValues("reserve").Inc()
				continue
			}
			return false, NewStorageError("save_inventory", "在庫保存に失敗しました", err)
		}

		l.recordMovement(ctx, inv, MovementTypeReserve, quantity, reference)
		l.afterMutation(ctx, inv, MovementTypeReserve, quantity, reference)

		l.logger.Info("在庫予約完了",
			zap.String("product_id", productID),
			zap.Int64("quantity", quantity),
			zap.Int64("available", inv.AvailableQuantity()),
			zap.Int64("reserved", inv.ReservedQuantity()),
			zap.String("reference", reference),
		)
		operationsTotal.WithLabelValues("reserve", "success").Inc()
		return true, nil
	}

	operationsTotal.WithLabelValues("reserve", "conflict").Inc()
	return false, NewStateError("reserve", "同時更新の競合により再試行上限に達しました", ErrVersionMismatch)
}

// Release returns reserved quantity to the available pool on cancellation.
// Invalid input or over-release indicates an upstream bug and fails loudly.
// キャンセル時に予約済み数量を利用可能プールへ戻す
func (l *Ledger) Release(ctx context.Context, productID string, quantity int64, reference string) error {
	if err := ValidateProductID(productID); err != nil {
		return err
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	for attempt := 0; attempt <= l.config.MaxRetries; attempt++ {
		rec, err := l.repo.FindByProductID(ctx, productID)
		if err != nil {
			return err
		}

		inv := FromRecord(*rec)
		if err := inv.ReleaseReservedStock(quantity); err != nil {
			// 呼び出し側の帳簿エラー。そのまま伝播する
			operationsTotal.WithLabelValues("release", "invalid").Inc()
			return err
		}

		out := inv.Record()
		if err := l.repo.Save(ctx, &out); err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				versionConflicts.WithLabelValues("release").Inc()
				continue
			}
			return NewStorageError("save_inventory", "在庫保存に失敗しました", err)
		}

		l.recordMovement(ctx, inv, MovementTypeRelease, quantity, reference)
		l.afterMutation(ctx, inv, MovementTypeRelease, quantity, reference)

		l.logger.Info("在庫予約解除完了",
			zap.String("product_id", productID),
			zap.Int64("quantity", quantity),
			zap.Int64("available", inv.AvailableQuantity()),
			zap.Int64("reserved", inv.ReservedQuantity()),
			zap.String("reference", reference),
		)
		operationsTotal.WithLabelValues("release", "success").Inc()
		return nil
	}

	operationsTotal.WithLabelValues("release", "conflict").Inc()
	return NewStateError("release", "同時更新の競合により再試行上限に達しました", ErrVersionMismatch)
}

// Deduct permanently removes reserved units on shipment. Like Reserve, an
// insufficient reservation is reported as false.
// 出荷時に予約済みユニットを恒久的に削除
func (l *Ledger) Deduct(ctx context.Context, productID string, quantity int64, reference string) (bool, error) {
	if err := ValidateProductID(productID); err != nil {
		return false, err
	}
	if quantity <= 0 {
		return false, nil
	}

	for attempt := 0; attempt <= l.config.MaxRetries; attempt++ {
		rec, err := l.repo.FindByProductID(ctx, productID)
		if err != nil {
			return false, err
		}

		inv := FromRecord(*rec)
		if !inv.DeductStock(quantity) {
			return false, nil
		}

		out := inv.Record()
		if err := l.repo.Save(ctx, &out); err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				versionConflicts.WithLabelValues("deduct").Inc()
				continue
			}
			return false, NewStorageError("save_inventory", "在庫保存に失敗しました", err)
		}

		l.recordMovement(ctx, inv, MovementTypeDeduct, quantity, reference)
		l.afterMutation(ctx, inv, MovementTypeDeduct, quantity, reference)

		l.logger.Info("在庫控除完了",
			zap.String("product_id", productID),
			zap.Int64("quantity", quantity),
			zap.Int64("reserved", inv.ReservedQuantity()),
			zap.String("reference", reference),
		)
		operationsTotal.WithLabelValues("deduct", "success").Inc()
		return true, nil
	}

	operationsTotal.WithLabelValues("deduct", "conflict").Inc()
	return false, NewStateError("deduct", "同時更新の競合により再試行上限に達しました", ErrVersionMismatch)
}

// Restock adds received units to the available quantity
// 入荷したユニットを利用可能数量に追加
func (l *Ledger) Restock(ctx context.Context, productID string, quantity int64, reference string) error {
	if err := ValidateProductID(productID); err != nil {
		return err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return err
	}

	for attempt := 0; attempt <= l.config.MaxRetries; attempt++ {
		rec, err := l.repo.FindByProductID(ctx, productID)
		if err != nil {
			return err
		}

		inv := FromRecord(*rec)
		if err := inv.RestockInventory(quantity); err != nil {
			return err
		}

		out := inv.Record()
		if err := l.repo.Save(ctx, &out); err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				versionConflicts.WithLabelValues("restock").Inc()
				continue
			}
			return NewStorageError("save_inventory", "在庫保存に失敗しました", err)
		}

		l.recordMovement(ctx, inv, MovementTypeRestock, quantity, reference)
		l.afterMutation(ctx, inv, MovementTypeRestock, quantity, reference)

		l.logger.Info("在庫補充完了",
			zap.String("product_id", productID),
			zap.Int64("quantity", quantity),
			zap.Int64("available", inv.AvailableQuantity()),
			zap.String("status", string(inv.Status())),
			zap.String("reference", reference),
		)
		operationsTotal.WithLabelValues("restock", "success").Inc()
		return nil
	}

	operationsTotal.WithLabelValues("restock", "conflict").Inc()
	return NewStateError("restock", "同時更新の競合により再試行上限に達しました", ErrVersionMismatch)
}

// CheckAvailability answers a shopper-facing availability query. A missing
// inventory row degrades to an unavailable answer instead of an error, since
// out-of-stock products are queried constantly.
// 購入者向けの在庫確認クエリに応答
func (l *Ledger) CheckAvailability(ctx context.Context, productID string, quantity int64) (*Availability, error) {
	if err := ValidateProductID(productID); err != nil {
		return nil, err
	}

	rec, err := l.repo.FindByProductID(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrInventoryNotFound) {
			return &Availability{
				ProductID:          productID,
				AvailableForOrder:  false,
				HasSufficientStock: false,
				AvailableQuantity:  0,
				Status:             StatusOutOfStock,
			}, nil
		}
		return nil, err
	}

	inv := FromRecord(*rec)
	return &Availability{
		ProductID:          productID,
		AvailableForOrder:  inv.IsAvailableForOrder(),
		HasSufficientStock: inv.HasSufficientStock(quantity),
		AvailableQuantity:  inv.AvailableQuantity(),
		Status:             inv.Status(),
	}, nil
}

// GetInventory retrieves the inventory snapshot for a product
// 商品の在庫スナップショットを取得
func (l *Ledger) GetInventory(ctx context.Context, productID string) (*InventoryRecord, error) {
	if err := ValidateProductID(productID); err != nil {
		return nil, err
	}
	return l.repo.FindByProductID(ctx, productID)
}

// GetSupplierInventory retrieves the inventory snapshot for a supplier's product
// サプライヤーの商品の在庫スナップショットを取得
func (l *Ledger) GetSupplierInventory(ctx context.Context, supplierID, productID string) (*InventoryRecord, error) {
	if err := ValidateSupplierID(supplierID); err != nil {
		return nil, err
	}
	if err := ValidateProductID(productID); err != nil {
		return nil, err
	}
	return l.repo.FindBySupplierIDAndProductID(ctx, supplierID, productID)
}

// RegisterStock creates the inventory row when a supplier first registers
// stock for a product
// サプライヤーが商品の在庫を最初に登録した時点で在庫行を作成
func (l *Ledger) RegisterStock(ctx context.Context, cmd RegisterStockCommand) (*InventoryRecord, error) {
	if err := ValidateVariantID(cmd.VariantID); err != nil {
		return nil, err
	}
	if err := ValidateWarehouseLocation(cmd.WarehouseLocation); err != nil {
		return nil, err
	}

	exists, err := l.repo.ExistsByProductID(ctx, cmd.ProductID)
	if err != nil {
		return nil, NewStorageError("exists_by_product_id", "在庫存在確認に失敗しました", err)
	}
	if exists {
		return nil, ErrDuplicateInventory
	}

	inv, err := NewInventory(cmd.SupplierID, cmd.ProductID, cmd.VariantID, cmd.InitialQuantity, cmd.ReorderLevel, cmd.ReorderQuantity, cmd.WarehouseLocation)
	if err != nil {
		return nil, err
	}

	rec := inv.Record()
	if err := l.repo.Create(ctx, &rec); err != nil {
		return nil, NewStorageError("create_inventory", "在庫作成に失敗しました", err)
	}

	if cmd.InitialQuantity > 0 {
		l.recordMovement(ctx, inv, MovementTypeRegister, cmd.InitialQuantity, "")
	}

	l.logger.Info("在庫登録完了",
		zap.String("inventory_id", inv.ID()),
		zap.String("supplier_id", cmd.SupplierID),
		zap.String("product_id", cmd.ProductID),
		zap.Int64("initial_quantity", cmd.InitialQuantity),
		zap.String("status", string(inv.Status())),
	)
	operationsTotal.WithLabelValues("register", "success").Inc()
	return &rec, nil
}

// UpdateInventory applies administrative field updates. The available quantity
// may never be set below what is already reserved.
// 管理用のフィールド更新を適用
func (l *Ledger) UpdateInventory(ctx context.Context, cmd UpdateInventoryCommand) (*InventoryRecord, error) {
	if err := ValidateProductID(cmd.ProductID); err != nil {
		return nil, err
	}
	if cmd.WarehouseLocation != nil {
		if err := ValidateWarehouseLocation(*cmd.WarehouseLocation); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt <= l.config.MaxRetries; attempt++ {
		rec, err := l.repo.FindByProductID(ctx, cmd.ProductID)
		if err != nil {
			return nil, err
		}

		inv := FromRecord(*rec)
		var adjusted int64
		if cmd.AvailableQuantity != nil {
			adjusted = *cmd.AvailableQuantity - inv.AvailableQuantity()
			if err := inv.AdjustAvailable(*cmd.AvailableQuantity); err != nil {
				return nil, err
			}
		}
		if cmd.ReorderLevel != nil || cmd.ReorderQuantity != nil {
			level := cmd.ReorderLevel
			if level == nil {
				level = inv.ReorderLevel()
			}
			qty := cmd.ReorderQuantity
			if qty == nil {
				qty = inv.ReorderQuantity()
			}
			if err := inv.UpdateReorderPolicy(level, qty); err != nil {
				return nil, err
			}
		}
		if cmd.WarehouseLocation != nil {
			inv.SetWarehouseLocation(*cmd.WarehouseLocation)
		}

		out := inv.Record()
		if err := l.repo.Save(ctx, &out); err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				versionConflicts.WithLabelValues("update").Inc()
				continue
			}
			return nil, NewStorageError("save_inventory", "在庫保存に失敗しました", err)
		}

		if adjusted != 0 {
			l.recordMovement(ctx, inv, MovementTypeAdjust, adjusted, "")
		}

		l.logger.Info("在庫更新完了",
			zap.String("product_id", cmd.ProductID),
			zap.Int64("available", inv.AvailableQuantity()),
			zap.String("status", string(inv.Status())),
		)
		operationsTotal.WithLabelValues("update", "success").Inc()
		return &out, nil
	}

	return nil, NewStateError("update", "同時更新の競合により再試行上限に達しました", ErrVersionMismatch)
}

// Discontinue marks a product's inventory as discontinued. The status becomes
// sticky: quantity operations stop recomputing it.
// 商品の在庫を廃番としてマーク
func (l *Ledger) Discontinue(ctx context.Context, productID string) error {
	if err := ValidateProductID(productID); err != nil {
		return err
	}

	for attempt := 0; attempt <= l.config.MaxRetries; attempt++ {
		rec, err := l.repo.FindByProductID(ctx, productID)
		if err != nil {
			return err
		}

		inv := FromRecord(*rec)
		inv.Discontinue()

		out := inv.Record()
		if err := l.repo.Save(ctx, &out); err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				versionConflicts.WithLabelValues("discontinue").Inc()
				continue
			}
			return NewStorageError("save_inventory", "在庫保存に失敗しました", err)
		}

		l.logger.Info("在庫廃番設定完了", zap.String("product_id", productID))
		operationsTotal.WithLabelValues("discontinue", "success").Inc()
		return nil
	}

	return NewStateError("discontinue", "同時更新の競合により再試行上限に達しました", ErrVersionMismatch)
}

// ListNeedingReorder lists inventories whose total stock has fallen to or
// below their reorder level. Discontinued rows are excluded.
// 補充が必要な在庫を一覧
func (l *Ledger) ListNeedingReorder(ctx context.Context) ([]ReorderSuggestion, error) {
	records, err := l.repo.FindInventoryNeedingReorder(ctx)
	if err != nil {
		return nil, NewStorageError("find_needing_reorder", "補充対象在庫の取得に失敗しました", err)
	}

	suggestions := make([]ReorderSuggestion, 0, len(records))
	for _, rec := range records {
		inv := FromRecord(rec)
		if !inv.NeedsReorder() {
			// クエリ結果が古い場合の防護
			continue
		}
		suggestion := ReorderSuggestion{
			Inventory:    rec,
			TotalStock:   inv.TotalStock(),
			ReorderLevel: *rec.ReorderLevel,
		}
		if rec.ReorderQuantity != nil {
			suggestion.ReorderQuantity = *rec.ReorderQuantity
		}
		suggestions = append(suggestions, suggestion)
	}

	return suggestions, nil
}

// History retrieves the movement journal for a product
// 商品の在庫移動履歴を取得
func (l *Ledger) History(ctx context.Context, productID string, limit int) ([]StockMovement, error) {
	if err := ValidateProductID(productID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = l.config.DefaultHistoryLimit
	}
	return l.repo.ListMovements(ctx, productID, limit)
}

// Stats returns administrative counts by status
// ステータス別の管理カウントを返す
func (l *Ledger) Stats(ctx context.Context) (*LedgerStats, error) {
	total, err := l.repo.Count(ctx)
	if err != nil {
		return nil, NewStorageError("count", "在庫件数取得に失敗しました", err)
	}

	stats := &LedgerStats{
		Total:    total,
		ByStatus: make(map[InventoryStatus]int64, 4),
	}
	for _, status := range []InventoryStatus{StatusAvailable, StatusLowStock, StatusOutOfStock, StatusDiscontinued} {
		count, err := l.repo.CountByStatus(ctx, status)
		if err != nil {
			return nil, NewStorageError("count_by_status", "ステータス別件数取得に失敗しました", err)
		}
		stats.ByStatus[status] = count
	}

	return stats, nil
}

// ヘルパーメソッド

// recordMovement writes a journal row for a committed mutation. Journal
// failures are logged, never propagated: the mutation itself already
// committed.
// 確定した変更の記録行を書き込む
func (l *Ledger) recordMovement(ctx context.Context, inv *Inventory, movementType MovementType, quantity int64, reference string) {
	if !l.config.JournalEnabled {
		return
	}

	movement := &StockMovement{
		ID:          NewMovementID(),
		InventoryID: inv.ID(),
		ProductID:   inv.ProductID(),
		Type:        movementType,
		Quantity:    quantity,
		Reference:   reference,
		CreatedAt:   time.Now(),
	}

	if err := l.repo.CreateMovement(ctx, movement); err != nil {
		l.logger.Error("在庫移動記録に失敗しました",
			zap.String("product_id", inv.ProductID()),
			zap.String("type", string(movementType)),
			zap.Error(err),
		)
	}
}

// afterMutation publishes events and surfaces the advisory reorder signal
// 変更後のイベント発行と補充推奨の通知
func (l *Ledger) afterMutation(ctx context.Context, inv *Inventory, movementType MovementType, quantity int64, reference string) {
	if l.publisher != nil {
		event := StockChangedEvent{
			InventoryID:  inv.ID(),
			ProductID:    inv.ProductID(),
			MovementType: movementType,
			Quantity:     quantity,
			Available:    inv.AvailableQuantity(),
			Reserved:     inv.ReservedQuantity(),
			Status:       inv.Status(),
			Reference:    reference,
			Timestamp:    time.Now(),
		}
		if err := l.publisher.PublishStockChanged(ctx, event); err != nil {
			l.logger.Error("在庫変更イベント発行に失敗しました", zap.Error(err))
		}
	}

	if inv.NeedsReorder() {
		level := inv.ReorderLevel()
		l.logger.Warn("補充推奨",
			zap.String("product_id", inv.ProductID()),
			zap.Int64("total_stock", inv.TotalStock()),
			zap.Int64("reorder_level", *level),
		)
		if l.publisher != nil {
			event := LowStockEvent{
				InventoryID:  inv.ID(),
				ProductID:    inv.ProductID(),
				TotalStock:   inv.TotalStock(),
				ReorderLevel: *level,
				Timestamp:    time.Now(),
			}
			if err := l.publisher.PublishLowStock(ctx, event); err != nil {
				l.logger.Error("低在庫イベント発行に失敗しました", zap.Error(err))
			}
		}
	}
}
