package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockRepository はテスト用のRepositoryモック
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, rec *InventoryRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRepository) Save(ctx context.Context, rec *InventoryRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id string) (*InventoryRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InventoryRecord), args.Error(1)
}

func (m *MockRepository) FindByProductID(ctx context.Context, productID string) (*InventoryRecord, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InventoryRecord), args.Error(1)
}

func (m *MockRepository) FindBySupplierIDAndProductID(ctx context.Context, supplierID, productID string) (*InventoryRecord, error) {
	args := m.Called(ctx, supplierID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*InventoryRecord), args.Error(1)
}

func (m *MockRepository) FindBySupplierID(ctx context.Context, supplierID string) ([]InventoryRecord, error) {
	args := m.Called(ctx, supplierID)
	return args.Get(0).([]InventoryRecord), args.Error(1)
}

func (m *MockRepository) FindByStatus(ctx context.Context, status InventoryStatus) ([]InventoryRecord, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]InventoryRecord), args.Error(1)
}

func (m *MockRepository) FindAll(ctx context.Context) ([]InventoryRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]InventoryRecord), args.Error(1)
}

func (m *MockRepository) FindInventoryNeedingReorder(ctx context.Context) ([]InventoryRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]InventoryRecord), args.Error(1)
}

func (m *MockRepository) ExistsByProductID(ctx context.Context, productID string) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountByStatus(ctx context.Context, status InventoryStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CreateMovement(ctx context.Context, movement *StockMovement) error {
	args := m.Called(ctx, movement)
	return args.Error(0)
}

func (m *MockRepository) ListMovements(ctx context.Context, productID string, limit int) ([]StockMovement, error) {
	args := m.Called(ctx, productID, limit)
	return args.Get(0).([]StockMovement), args.Error(1)
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockPublisher はテスト用のEventPublisherモック
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishStockChanged(ctx context.Context, event StockChangedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishLowStock(ctx context.Context, event LowStockEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// testRecord テスト用の在庫レコードを作成
func testRecord(available, reserved int64, reorderLevel *int64, status InventoryStatus) *InventoryRecord {
	return &InventoryRecord{
		ID:                "inv-1",
		SupplierID:        "SUP-1",
		ProductID:         "PROD-1",
		AvailableQuantity: available,
		ReservedQuantity:  reserved,
		ReorderLevel:      reorderLevel,
		WarehouseLocation: "Warehouse A",
		LastUpdated:       time.Now(),
		Status:            status,
		Version:           1,
	}
}

func newTestLedger(repo Repository, publisher EventPublisher) *Ledger {
	return NewLedger(repo, publisher, zap.NewNop(), nil)
}

// TestLedgerReserve は予約成功のテスト
func TestLedgerReserve(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(100, 0, nil, StatusAvailable), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*ledger.InventoryRecord")).Run(func(args mock.Arguments) {
		saved := args.Get(1).(*InventoryRecord)
		assert.Equal(t, int64(70), saved.AvailableQuantity)
		assert.Equal(t, int64(30), saved.ReservedQuantity)
	}).Return(nil)
	repo.On("CreateMovement", ctx, mock.AnythingOfType("*ledger.StockMovement")).Return(nil)

	ok, err := ledger.Reserve(ctx, "PROD-1", 30, "ORDER-42")

	require.NoError(t, err)
	assert.True(t, ok)
	repo.AssertExpectations(t)
}

// TestLedgerReserve_Insufficient は在庫不足時の穏やかな拒否テスト
func TestLedgerReserve_Insufficient(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(5, 0, nil, StatusAvailable), nil)

	ok, err := ledger.Reserve(ctx, "PROD-1", 10, "ORDER-42")

	require.NoError(t, err)
	assert.False(t, ok)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestLedgerReserve_NotOrderable は注文不可ステータスでの拒否テスト
func TestLedgerReserve_NotOrderable(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	rec := testRecord(100, 0, nil, StatusDiscontinued)
	repo.On("FindByProductID", ctx, "PROD-1").Return(rec, nil)

	ok, err := ledger.Reserve(ctx, "PROD-1", 10, "")

	require.NoError(t, err)
	assert.False(t, ok)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestLedgerReserve_InvalidQuantity は非正数量の穏やかな拒否テスト
func TestLedgerReserve_InvalidQuantity(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)

	ok, err := ledger.Reserve(context.Background(), "PROD-1", 0, "")

	require.NoError(t, err)
	assert.False(t, ok)
	repo.AssertNotCalled(t, "FindByProductID", mock.Anything, mock.Anything)
}

// TestLedgerReserve_RetryOnConflict はバージョン競合時の再試行テスト
func TestLedgerReserve_RetryOnConflict(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(100, 0, nil, StatusAvailable), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*ledger.InventoryRecord")).Return(ErrVersionMismatch).Once()
	repo.On("Save", ctx, mock.AnythingOfType("*ledger.InventoryRecord")).Return(nil).Once()
	repo.On("CreateMovement", ctx, mock.AnythingOfType("*ledger.StockMovement")).Return(nil)

	ok, err := ledger.Reserve(ctx, "PROD-1", 30, "ORDER-42")

	require.NoError(t, err)
	assert.True(t, ok)
	repo.AssertNumberOfCalls(t, "FindByProductID", 2)
}

// TestLedgerReserve_ConflictExhausted は再試行上限到達のテスト
func TestLedgerReserve_ConflictExhausted(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(100, 0, nil, StatusAvailable), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*ledger.InventoryRecord")).Return(ErrVersionMismatch)

	ok, err := ledger.Reserve(ctx, "PROD-1", 30, "")

	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

// TestLedgerRelease は予約解除のテスト
func TestLedgerRelease(t *testing.T) {
	repo := new(MockRepository)
	publisher := new(MockPublisher)
	ledger := newTestLedger(repo, publisher)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(70, 30, nil, StatusAvailable), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*ledger.InventoryRecord")).Run(func(args mock.Arguments) {
		saved := args.Get(1).(*InventoryRecord)
		assert.Equal(t, int64(100), saved.AvailableQuantity)
		assert.Equal(t, int64(0), saved.ReservedQuantity)
	}).Return(nil)
	repo.On("CreateMovement", ctx, mock.AnythingOfType("*ledger.StockMovement")).Return(nil)
	publisher.On("PublishStockChanged", ctx, mock.AnythingOfType("ledger.StockChangedEvent")).Return(nil)

	err := ledger.Release(ctx, "PROD-1", 30, "ORDER-42")

	require.NoError(t, err)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

// TestLedgerRelease_OverRelease は予約超過解除のエラー伝播テスト
func TestLedgerRelease_OverRelease(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(70, 30, nil, StatusAvailable), nil)

	err := ledger.Release(ctx, "PROD-1", 50, "")

	assert.ErrorIs(t, err, ErrInsufficientReservation)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestLedgerRelease_InvalidQuantity は非正数量のエラーテスト
func TestLedgerRelease_InvalidQuantity(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)

	err := ledger.Release(context.Background(), "PROD-1", 0, "")

	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

// TestLedgerDeduct は出荷控除のテスト
func TestLedgerDeduct(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(0, 5, nil, StatusOutOfStock), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*ledger.InventoryRecord")).Run(func(args mock.Arguments) {
		saved := args.Get(1).(*InventoryRecord)
		assert.Equal(t, int64(0), saved.AvailableQuantity)
		assert.Equal(t, int64(0), saved.ReservedQuantity)
		assert.Equal(t, StatusOutOfStock, saved.Status)
	}).Return(nil)
	repo.On("CreateMovement", ctx, mock.AnythingOfType("*ledger.StockMovement")).Return(nil)

	ok, err := ledger.Deduct(ctx, "PROD-1", 5, "SHIP-7")

	require.NoError(t, err)
	assert.True(t, ok)
	repo.AssertExpectations(t)
}

// TestLedgerDeduct_Insufficient は予約不足時の穏やかな拒否テスト
func TestLedgerDeduct_Insufficient(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(90, 10, nil, StatusAvailable), nil)

	ok, err := ledger.Deduct(ctx, "PROD-1", 20, "")

	require.NoError(t, err)
	assert.False(t, ok)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestLedgerRestock は補充のテスト
func TestLedgerRestock(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(0, 0, int64Ptr(5), StatusOutOfStock), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*ledger.InventoryRecord")).Run(func(args mock.Arguments) {
		saved := args.Get(1).(*InventoryRecord)
		assert.Equal(t, int64(100), saved.AvailableQuantity)
		assert.Equal(t, StatusAvailable, saved.Status)
		assert.NotNil(t, saved.LastRestocked)
	}).Return(nil)
	repo.On("CreateMovement", ctx, mock.AnythingOfType("*ledger.StockMovement")).Return(nil)

	err := ledger.Restock(ctx, "PROD-1", 100, "PO-3")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

// TestLedgerRestock_InvalidQuantity は非正数量のエラーテスト
func TestLedgerRestock_InvalidQuantity(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)

	err := ledger.Restock(context.Background(), "PROD-1", -1, "")

	assert.Error(t, err)
	repo.AssertNotCalled(t, "FindByProductID", mock.Anything, mock.Anything)
}

// TestLedgerCheckAvailability は在庫確認のテスト
func TestLedgerCheckAvailability(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(3, 0, int64Ptr(5), StatusLowStock), nil)

	avail, err := ledger.CheckAvailability(ctx, "PROD-1", 2)

	require.NoError(t, err)
	assert.True(t, avail.AvailableForOrder)
	assert.True(t, avail.HasSufficientStock)
	assert.Equal(t, int64(3), avail.AvailableQuantity)
	assert.Equal(t, StatusLowStock, avail.Status)
}

// TestLedgerCheckAvailability_NotFound は未登録商品の在庫なし扱いテスト
func TestLedgerCheckAvailability_NotFound(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "UNKNOWN").Return(nil, ErrInventoryNotFound)

	avail, err := ledger.CheckAvailability(ctx, "UNKNOWN", 1)

	require.NoError(t, err)
	assert.False(t, avail.AvailableForOrder)
	assert.False(t, avail.HasSufficientStock)
	assert.Equal(t, int64(0), avail.AvailableQuantity)
	assert.Equal(t, StatusOutOfStock, avail.Status)
}

// TestLedgerRegisterStock は在庫登録のテスト
func TestLedgerRegisterStock(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("ExistsByProductID", ctx, "PROD-1").Return(false, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*ledger.InventoryRecord")).Return(nil)
	repo.On("CreateMovement", ctx, mock.AnythingOfType("*ledger.StockMovement")).Return(nil)

	rec, err := ledger.RegisterStock(ctx, RegisterStockCommand{
		SupplierID:      "SUP-1",
		ProductID:       "PROD-1",
		InitialQuantity: 50,
		ReorderLevel:    int64Ptr(10),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(50), rec.AvailableQuantity)
	assert.Equal(t, StatusAvailable, rec.Status)
	repo.AssertExpectations(t)
}

// TestLedgerRegisterStock_Duplicate は重複登録のエラーテスト
func TestLedgerRegisterStock_Duplicate(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("ExistsByProductID", ctx, "PROD-1").Return(true, nil)

	_, err := ledger.RegisterStock(ctx, RegisterStockCommand{
		SupplierID: "SUP-1",
		ProductID:  "PROD-1",
	})

	assert.ErrorIs(t, err, ErrDuplicateInventory)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestLedgerUpdateInventory は管理更新のテスト
func TestLedgerUpdateInventory(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(100, 30, nil, StatusAvailable), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*ledger.InventoryRecord")).Return(nil)
	repo.On("CreateMovement", ctx, mock.AnythingOfType("*ledger.StockMovement")).Return(nil)

	rec, err := ledger.UpdateInventory(ctx, UpdateInventoryCommand{
		ProductID:         "PROD-1",
		AvailableQuantity: int64Ptr(60),
		ReorderLevel:      int64Ptr(20),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(60), rec.AvailableQuantity)
	assert.Equal(t, int64(30), rec.ReservedQuantity)
	require.NotNil(t, rec.ReorderLevel)
	assert.Equal(t, int64(20), *rec.ReorderLevel)
}

// TestLedgerUpdateInventory_BelowReserved は予約済み数量を下回る更新の拒否テスト
func TestLedgerUpdateInventory_BelowReserved(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(100, 30, nil, StatusAvailable), nil)

	_, err := ledger.UpdateInventory(ctx, UpdateInventoryCommand{
		ProductID:         "PROD-1",
		AvailableQuantity: int64Ptr(20),
	})

	assert.Error(t, err)
	var stateErr *StateError
	assert.ErrorAs(t, err, &stateErr)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// TestLedgerDiscontinue は廃番設定のテスト
func TestLedgerDiscontinue(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("FindByProductID", ctx, "PROD-1").Return(testRecord(100, 0, nil, StatusAvailable), nil)
	repo.On("Save", ctx, mock.AnythingOfType("*ledger.InventoryRecord")).Run(func(args mock.Arguments) {
		saved := args.Get(1).(*InventoryRecord)
		assert.Equal(t, StatusDiscontinued, saved.Status)
	}).Return(nil)

	err := ledger.Discontinue(ctx, "PROD-1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

// TestLedgerListNeedingReorder は補充対象一覧のテスト
func TestLedgerListNeedingReorder(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	low := testRecord(2, 1, int64Ptr(5), StatusLowStock)
	low.ReorderQuantity = int64Ptr(25)
	// クエリ実行後に補充された古い行は除外される
	stale := testRecord(50, 0, int64Ptr(5), StatusAvailable)
	stale.ProductID = "PROD-2"
	repo.On("FindInventoryNeedingReorder", ctx).Return([]InventoryRecord{*low, *stale}, nil)

	suggestions, err := ledger.ListNeedingReorder(ctx)

	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "PROD-1", suggestions[0].Inventory.ProductID)
	assert.Equal(t, int64(3), suggestions[0].TotalStock)
	assert.Equal(t, int64(5), suggestions[0].ReorderLevel)
	assert.Equal(t, int64(25), suggestions[0].ReorderQuantity)
}

// TestLedgerHistory は履歴取得のテスト
func TestLedgerHistory(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	movements := []StockMovement{
		{ID: "mv-1", ProductID: "PROD-1", Type: MovementTypeReserve, Quantity: 5},
	}
	// limit未指定時はデフォルト件数が適用される
	repo.On("ListMovements", ctx, "PROD-1", 50).Return(movements, nil)

	result, err := ledger.History(ctx, "PROD-1", 0)

	require.NoError(t, err)
	assert.Equal(t, movements, result)
}

// TestLedgerStats はステータス別カウントのテスト
func TestLedgerStats(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	repo.On("Count", ctx).Return(int64(10), nil)
	repo.On("CountByStatus", ctx, StatusAvailable).Return(int64(6), nil)
	repo.On("CountByStatus", ctx, StatusLowStock).Return(int64(2), nil)
	repo.On("CountByStatus", ctx, StatusOutOfStock).Return(int64(1), nil)
	repo.On("CountByStatus", ctx, StatusDiscontinued).Return(int64(1), nil)

	stats, err := ledger.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(6), stats.ByStatus[StatusAvailable])
	assert.Equal(t, int64(1), stats.ByStatus[StatusDiscontinued])
}

// TestLedgerStorageErrorPropagation はストレージエラーの伝播テスト
func TestLedgerStorageErrorPropagation(t *testing.T) {
	repo := new(MockRepository)
	ledger := newTestLedger(repo, nil)
	ctx := context.Background()

	dbErr := errors.New("connection refused")
	repo.On("FindByProductID", ctx, "PROD-1").Return(nil, dbErr)

	ok, err := ledger.Reserve(ctx, "PROD-1", 5, "")

	assert.False(t, ok)
	assert.ErrorIs(t, err, dbErr)
}
