package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiLedgerGo/pkg/ledger"
)

// Handlers holds HTTP handlers for the stock ledger API
// 在庫台帳API用のHTTPハンドラーを保持
type Handlers struct {
	ledger ledger.StockLedger
	logger *zap.Logger
}

// NewHandlers creates new HTTP handlers
// 新しいHTTPハンドラーを作成
func NewHandlers(l ledger.StockLedger, logger *zap.Logger) *Handlers {
	return &Handlers{
		ledger: l,
		logger: logger,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// QuantityRequest represents a quantity mutation request
// 数量変更リクエストを表現
type QuantityRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Reference string `json:"reference"`
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "zaiLedgerGo",
		},
	}

	json.NewEncoder(w).Encode(response)
}

// Reserve handles stock reservation requests
// 在庫予約リクエストを処理
func (h *Handlers) Reserve(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	reserved, err := h.ledger.Reserve(r.Context(), req.ProductID, req.Quantity, req.Reference)
	if err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, map[string]interface{}{
		"reserved":   reserved,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})
}

// Release handles reservation release requests
// 予約解除リクエストを処理
func (h *Handlers) Release(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	if err := h.ledger.Release(r.Context(), req.ProductID, req.Quantity, req.Reference); err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, map[string]string{
		"message": "予約解除が完了しました",
	})
}

// Deduct handles stock deduction requests
// 在庫控除リクエストを処理
func (h *Handlers) Deduct(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	deducted, err := h.ledger.Deduct(r.Context(), req.ProductID, req.Quantity, req.Reference)
	if err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, map[string]interface{}{
		"deducted":   deducted,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})
}

// Restock handles restock requests
// 在庫補充リクエストを処理
func (h *Handlers) Restock(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	if err := h.ledger.Restock(r.Context(), req.ProductID, req.Quantity, req.Reference); err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, map[string]string{
		"message": "在庫補充が完了しました",
	})
}

// CheckAvailability handles availability check requests
// 在庫確認リクエストを処理
func (h *Handlers) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	productID := vars["productId"]

	quantity := int64(1)
	if q := r.URL.Query().Get("quantity"); q != "" {
		parsed, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "無効な数量です")
			return
		}
		quantity = parsed
	}

	availability, err := h.ledger.CheckAvailability(r.Context(), productID, quantity)
	if err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, availability)
}

// GetInventory handles inventory snapshot requests
// 在庫スナップショット取得リクエストを処理
func (h *Handlers) GetInventory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rec, err := h.ledger.GetInventory(r.Context(), vars["productId"])
	if err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, rec)
}

// GetSupplierInventory handles supplier inventory snapshot requests
// サプライヤー在庫スナップショット取得リクエストを処理
func (h *Handlers) GetSupplierInventory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rec, err := h.ledger.GetSupplierInventory(r.Context(), vars["supplierId"], vars["productId"])
	if err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, rec)
}

// RegisterStock handles inventory registration requests
// 在庫登録リクエストを処理
func (h *Handlers) RegisterStock(w http.ResponseWriter, r *http.Request) {
	var cmd ledger.RegisterStockCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}

	rec, err := h.ledger.RegisterStock(r.Context(), cmd)
	if err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: rec})
}

// UpdateInventory handles administrative inventory updates
// 管理用の在庫更新リクエストを処理
func (h *Handlers) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var cmd ledger.UpdateInventoryCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return
	}
	cmd.ProductID = vars["productId"]

	rec, err := h.ledger.UpdateInventory(r.Context(), cmd)
	if err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, rec)
}

// Discontinue handles product discontinuation requests
// 商品廃番リクエストを処理
func (h *Handlers) Discontinue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.ledger.Discontinue(r.Context(), vars["productId"]); err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, map[string]string{
		"message": "廃番設定が完了しました",
	})
}

// ListNeedingReorder handles reorder suggestion requests
// 補充推奨一覧リクエストを処理
func (h *Handlers) ListNeedingReorder(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.ledger.ListNeedingReorder(r.Context())
	if err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, suggestions)
}

// GetHistory handles movement history requests
// 在庫移動履歴リクエストを処理
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "無効な件数です")
			return
		}
		limit = parsed
	}

	movements, err := h.ledger.History(r.Context(), vars["productId"], limit)
	if err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, movements)
}

// GetStats handles ledger statistics requests
// 台帳統計リクエストを処理
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.Stats(r.Context())
	if err != nil {
		h.sendError(w, statusFromError(err), err.Error())
		return
	}

	h.sendSuccess(w, stats)
}

// statusFromError maps ledger errors to HTTP status codes
// 台帳エラーをHTTPステータスコードへ変換
func statusFromError(err error) int {
	var validationErr *ledger.ValidationError
	switch {
	case errors.Is(err, ledger.ErrInventoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicateInventory):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrVersionMismatch):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientReservation):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidQuantity), errors.As(err, &validationErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// sendSuccess sends a successful API response
// 成功APIレスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := APIResponse{
		Success: true,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}

// sendError sends an error API response
// エラーAPIレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("エラーレスポンス送信に失敗しました", zap.Error(err))
	}
}
