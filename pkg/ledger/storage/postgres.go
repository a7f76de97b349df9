package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiLedgerGo/pkg/ledger"
)

// PostgreSQLRepository implements the Repository interface using PostgreSQL
// PostgreSQLを使用したRepositoryインターフェースの実装
type PostgreSQLRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ledger.Repository = (*PostgreSQLRepository)(nil)

const inventoryColumns = `id, supplier_id, product_id, variant_id, available_quantity, reserved_quantity, reorder_level, reorder_quantity, warehouse_location, last_restocked, last_updated, status, version`

// NewPostgreSQLRepository creates a new PostgreSQL repository instance
// 新しいPostgreSQLリポジトリインスタンスを作成
func NewPostgreSQLRepository(dsn string, logger *zap.Logger) (*PostgreSQLRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQLRepository{
		db:     db,
		logger: logger,
	}, nil
}

// Create inserts a new inventory row
// 新しい在庫行を挿入
func (r *PostgreSQLRepository) Create(ctx context.Context, rec *ledger.InventoryRecord) error {
	query := `
		INSERT INTO inventories (` + inventoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.SupplierID,
		rec.ProductID,
		rec.VariantID,
		rec.AvailableQuantity,
		rec.ReservedQuantity,
		rec.ReorderLevel,
		rec.ReorderQuantity,
		rec.WarehouseLocation,
		rec.LastRestocked,
		rec.LastUpdated,
		rec.Status,
		rec.Version,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ledger.ErrDuplicateInventory
		}
		return fmt.Errorf("在庫行作成に失敗しました: %w", err)
	}

	return nil
}

// Save updates an existing inventory row. The version check serializes
// concurrent writers on the same row: losing the race yields
// ErrVersionMismatch instead of overwriting a fresher state.
// 既存の在庫行を更新
func (r *PostgreSQLRepository) Save(ctx context.Context, rec *ledger.InventoryRecord) error {
	query := `
		UPDATE inventories
		SET available_quantity = $2, reserved_quantity = $3, reorder_level = $4, reorder_quantity = $5,
		    warehouse_location = $6, last_restocked = $7, last_updated = $8, status = $9, version = version + 1
		WHERE id = $1 AND version = $10`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.AvailableQuantity,
		rec.ReservedQuantity,
		rec.ReorderLevel,
		rec.ReorderQuantity,
		rec.WarehouseLocation,
		rec.LastRestocked,
		rec.LastUpdated,
		rec.Status,
		rec.Version,
	)

	if err != nil {
		return fmt.Errorf("在庫行更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}

	if rowsAffected == 0 {
		// 行が存在しないか、他の書き込みに負けた
		exists, existsErr := r.existsByID(ctx, rec.ID)
		if existsErr == nil && !exists {
			return ledger.ErrInventoryNotFound
		}
		return ledger.ErrVersionMismatch
	}

	rec.Version++
	return nil
}

// FindByID retrieves an inventory row by its ID
// IDで在庫行を取得
func (r *PostgreSQLRepository) FindByID(ctx context.Context, id string) (*ledger.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByProductID retrieves the inventory row for a product
// 商品IDで在庫行を取得
func (r *PostgreSQLRepository) FindByProductID(ctx context.Context, productID string) (*ledger.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories WHERE product_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, productID))
}

// FindBySupplierIDAndProductID retrieves the inventory row for a supplier's product
// サプライヤーIDと商品IDで在庫行を取得
func (r *PostgreSQLRepository) FindBySupplierIDAndProductID(ctx context.Context, supplierID, productID string) (*ledger.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories WHERE supplier_id = $1 AND product_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, supplierID, productID))
}

// FindBySupplierID retrieves all inventory rows for a supplier
// サプライヤーのすべての在庫行を取得
func (r *PostgreSQLRepository) FindBySupplierID(ctx context.Context, supplierID string) ([]ledger.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories WHERE supplier_id = $1 ORDER BY product_id`
	return r.scanMany(ctx, query, supplierID)
}

// FindByStatus retrieves all inventory rows with the given status
// 指定ステータスのすべての在庫行を取得
func (r *PostgreSQLRepository) FindByStatus(ctx context.Context, status ledger.InventoryStatus) ([]ledger.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories WHERE status = $1 ORDER BY product_id`
	return r.scanMany(ctx, query, status)
}

// FindAll retrieves all inventory rows
// すべての在庫行を取得
func (r *PostgreSQLRepository) FindAll(ctx context.Context) ([]ledger.InventoryRecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventories ORDER BY product_id`
	return r.scanMany(ctx, query)
}

// FindInventoryNeedingReorder retrieves rows whose total stock has fallen to
// or below the reorder level. Discontinued rows are excluded.
// 補充が必要な在庫行を取得
func (r *PostgreSQLRepository) FindInventoryNeedingReorder(ctx context.Context) ([]ledger.InventoryRecord, error) {
	query := `
		SELECT ` + inventoryColumns + `
		FROM inventories
		WHERE status <> $1
		  AND reorder_level IS NOT NULL
		  AND available_quantity + reserved_quantity <= reorder_level
		ORDER BY product_id`
	return r.scanMany(ctx, query, ledger.StatusDiscontinued)
}

// ExistsByProductID reports whether an inventory row exists for a product
// 商品の在庫行が存在するかどうかを返す
func (r *PostgreSQLRepository) ExistsByProductID(ctx context.Context, productID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM inventories WHERE product_id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("在庫存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// DeleteByID removes an inventory row (administrative use only)
// 在庫行を削除（管理用途のみ）
func (r *PostgreSQLRepository) DeleteByID(ctx context.Context, id string) error {
	query := `DELETE FROM inventories WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("在庫行削除に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除行数の取得に失敗しました: %w", err)
	}

	if rowsAffected == 0 {
		return ledger.ErrInventoryNotFound
	}

	return nil
}

// Count returns the total number of inventory rows
// 在庫行の総数を返す
func (r *PostgreSQLRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventories`).Scan(&count); err != nil {
		return 0, fmt.Errorf("在庫件数取得に失敗しました: %w", err)
	}
	return count, nil
}

// CountByStatus returns the number of inventory rows with the given status
// 指定ステータスの在庫行の数を返す
func (r *PostgreSQLRepository) CountByStatus(ctx context.Context, status ledger.InventoryStatus) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventories WHERE status = $1`, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("ステータス別件数取得に失敗しました: %w", err)
	}
	return count, nil
}

// CreateMovement inserts a stock movement journal row
// 在庫移動記録行を挿入
func (r *PostgreSQLRepository) CreateMovement(ctx context.Context, movement *ledger.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, inventory_id, product_id, type, quantity, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		movement.ID,
		movement.InventoryID,
		movement.ProductID,
		movement.Type,
		movement.Quantity,
		movement.Reference,
		movement.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("在庫移動記録作成に失敗しました: %w", err)
	}

	return nil
}

// ListMovements retrieves the movement journal for a product, newest first
// 商品の在庫移動記録を新しい順に取得
func (r *PostgreSQLRepository) ListMovements(ctx context.Context, productID string, limit int) ([]ledger.StockMovement, error) {
	query := `
		SELECT id, inventory_id, product_id, type, quantity, reference, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("在庫移動記録取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var movements []ledger.StockMovement
	for rows.Next() {
		var movement ledger.StockMovement
		err := rows.Scan(
			&movement.ID,
			&movement.InventoryID,
			&movement.ProductID,
			&movement.Type,
			&movement.Quantity,
			&movement.Reference,
			&movement.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("在庫移動スキャンに失敗しました: %w", err)
		}
		movements = append(movements, movement)
	}

	return movements, rows.Err()
}

// Ping checks database connectivity
// データベース接続をチェック
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection
// データベース接続を閉じる
func (r *PostgreSQLRepository) Close() error {
	return r.db.Close()
}

// ヘルパーメソッド

func (r *PostgreSQLRepository) existsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM inventories WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// scanOne scans a single inventory row
// 単一の在庫行をスキャン
func (r *PostgreSQLRepository) scanOne(row *sql.Row) (*ledger.InventoryRecord, error) {
	rec := &ledger.InventoryRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.SupplierID,
		&rec.ProductID,
		&rec.VariantID,
		&rec.AvailableQuantity,
		&rec.ReservedQuantity,
		&rec.ReorderLevel,
		&rec.ReorderQuantity,
		&rec.WarehouseLocation,
		&rec.LastRestocked,
		&rec.LastUpdated,
		&rec.Status,
		&rec.Version,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("在庫取得に失敗しました: %w", err)
	}

	return rec, nil
}

// scanMany scans a list of inventory rows
// 複数の在庫行をスキャン
func (r *PostgreSQLRepository) scanMany(ctx context.Context, query string, args ...interface{}) ([]ledger.InventoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("在庫一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var records []ledger.InventoryRecord
	for rows.Next() {
		var rec ledger.InventoryRecord
		err := rows.Scan(
			&rec.ID,
			&rec.SupplierID,
			&rec.ProductID,
			&rec.VariantID,
			&rec.AvailableQuantity,
			&rec.ReservedQuantity,
			&rec.ReorderLevel,
			&rec.ReorderQuantity,
			&rec.WarehouseLocation,
			&rec.LastRestocked,
			&rec.LastUpdated,
			&rec.Status,
			&rec.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("在庫スキャンに失敗しました: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
