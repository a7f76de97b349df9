package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiLedgerGo/internal/config"
	"github.com/nemonet1337/zaiLedgerGo/pkg/ledger"
	"github.com/nemonet1337/zaiLedgerGo/pkg/ledger/storage"
)

func main() {
	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("設定読み込みに失敗しました:", err)
	}

	// ログ設定
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer logger.Sync()

	// データベース接続
	repo, err := storage.NewPostgreSQLRepository(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer repo.Close()

	// 在庫台帳初期化
	ledgerConfig := &ledger.Config{
		MaxRetries:          cfg.Ledger.MaxRetries,
		JournalEnabled:      cfg.Ledger.JournalEnabled,
		DefaultHistoryLimit: cfg.Ledger.DefaultHistoryLimit,
	}

	stockLedger := ledger.NewLedger(repo, nil, logger, ledgerConfig)

	// HTTPハンドラー設定
	handlers := NewHandlers(stockLedger, logger)
	router := setupRouter(handlers, cfg)

	// HTTPサーバー設定
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	// グレースフルシャットダウン設定
	go func() {
		logger.Info("在庫台帳APIサーバーを開始します", zap.Int("port", cfg.API.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー開始に失敗しました", zap.Error(err))
		}
	}()

	// シャットダウンシグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	// グレースフルシャットダウン
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常に停止しました")
}

// newLogger builds the zap logger from logging configuration
// ログ設定からzapロガーを構築
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	if cfg.Format == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// setupRouter sets up HTTP routes
// HTTPルートを設定
func setupRouter(handlers *Handlers, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()

	// ヘルスチェック
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	if cfg.API.EnableMetrics {
		router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	// API v1ルート
	api := router.PathPrefix("/api/v1").Subrouter()

	// 数量操作
	api.HandleFunc("/inventory/reserve", handlers.Reserve).Methods("POST")
	api.HandleFunc("/inventory/release", handlers.Release).Methods("POST")
	api.HandleFunc("/inventory/deduct", handlers.Deduct).Methods("POST")
	api.HandleFunc("/inventory/restock", handlers.Restock).Methods("POST")

	// 在庫照会
	api.HandleFunc("/inventory/reorder-needed", handlers.ListNeedingReorder).Methods("GET")
	api.HandleFunc("/inventory/stats", handlers.GetStats).Methods("GET")
	api.HandleFunc("/inventory/{productId}", handlers.GetInventory).Methods("GET")
	api.HandleFunc("/inventory/{productId}/availability", handlers.CheckAvailability).Methods("GET")
	api.HandleFunc("/inventory/{productId}/history", handlers.GetHistory).Methods("GET")
	api.HandleFunc("/suppliers/{supplierId}/inventory/{productId}", handlers.GetSupplierInventory).Methods("GET")

	// ライフサイクル管理
	api.HandleFunc("/inventory", handlers.RegisterStock).Methods("POST")
	api.HandleFunc("/inventory/{productId}", handlers.UpdateInventory).Methods("PUT")
	api.HandleFunc("/inventory/{productId}/discontinue", handlers.Discontinue).Methods("POST")

	// CORS設定（開発用）
	if cfg.API.EnableCORS {
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				if r.Method == "OPTIONS" {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	// ログ機能
	router.Use(loggingMiddleware(handlers.logger))

	return router
}

// loggingMiddleware logs HTTP requests
// HTTPリクエストをログ出力するミドルウェア
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// リクエスト処理
			next.ServeHTTP(w, r)

			// ログ出力
			logger.Info("HTTPリクエスト",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
