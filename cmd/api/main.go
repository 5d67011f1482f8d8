package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/supabase-community/supabase-go"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/api/handlers"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/metrics"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/services/auth"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/services/collections"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/services/realtime"
)

func main() {
	cfg := loadConfig()

	// Supabase クライアント。認証（GoTrue）は常にこれを使う
	sb, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Fatalf("Supabaseクライアントの初期化に失敗しました: %v", err)
	}

	// レコードストア: DATABASE_URL があれば Postgres 直結、なければ PostgREST 経由
	var codeRepo database.CodeRepository
	var userRepo database.UserRepository
	if cfg.DatabaseURL != "" {
		dbService, err := database.NewDatabaseService(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("データベースへの接続に失敗しました: %v", err)
		}
		defer dbService.Close()
		codeRepo = database.NewPgCodeRepository(dbService.DB)
		userRepo = database.NewPgUserRepository(dbService.DB)
		log.Println("レコードストア: Postgres 直接接続")
	} else {
		codeRepo = database.NewSupabaseCodeRepository(sb)
		userRepo = database.NewSupabaseUserRepository(sb)
		log.Println("レコードストア: Supabase PostgREST")
	}

	// ローカルミラー。開けなくてもサーバーは起動する（ミラーなしで動作）
	var mirror database.CollectionMirror
	if badgerMirror, err := database.NewBadgerMirror(cfg.MirrorPath); err != nil {
		log.Printf("警告: ローカルミラーを開けませんでした（ミラーなしで続行します）: %v", err)
	} else {
		mirror = badgerMirror
		defer badgerMirror.Close()
	}

	hub := realtime.NewHub()
	manager := collections.NewManager(codeRepo, mirror, hub)
	authService := auth.NewService(sb.Auth, userRepo)

	// セッションイベント（signed_in / signed_out）をマネージャーへ流す
	go manager.Run(authService.Events().Subscribe())

	collector := metrics.NewCollector()

	authHandler := handlers.NewAuthHandler(authService, collector)
	profileHandler := handlers.NewProfileHandler(userRepo)
	collectionHandler := handlers.NewCollectionHandler(manager, collector)
	analyticsHandler := handlers.NewAnalyticsHandler(codeRepo)
	wsHandler := handlers.NewWSHandler(hub, cfg.SupabaseJWTSecret)

	r := mux.NewRouter()
	r.Use(middleware.NewMetricsMiddleware(collector))

	// 認証不要な公開エンドポイント
	r.HandleFunc("/api/public", handlers.PublicHandlerFunc).Methods("GET")
	r.Handle("/metrics", collector.Handler()).Methods("GET")
	r.HandleFunc("/api/auth/signup", authHandler.SignUpHandler).Methods("POST")
	r.HandleFunc("/api/auth/signin", authHandler.SignInHandler).Methods("POST")
	// WebSocket はヘッダーを送れないのでクエリパラメータのトークンで認証する
	r.HandleFunc("/api/ws", wsHandler.ServeWSHandler).Methods("GET")

	// 認証が必要なルートグループ
	// /api/protected/ で始まる全てのパスにAuthMiddlewareを適用します。
	protectedRouter := r.PathPrefix("/api/protected").Subrouter()
	protectedRouter.Use(middleware.NewAuthMiddleware(cfg.SupabaseJWTSecret))

	protectedRouter.HandleFunc("/auth/signout", authHandler.SignOutHandler).Methods("POST")
	protectedRouter.HandleFunc("/auth/me", authHandler.CurrentUserHandler).Methods("GET")
	protectedRouter.HandleFunc("/profile", profileHandler.GetProfileHandler).Methods("GET")
	protectedRouter.HandleFunc("/profile", profileHandler.UpdateProfileHandler).Methods("PUT")

	protectedRouter.HandleFunc("/collections", collectionHandler.ListCollectionsHandler).Methods("GET")
	protectedRouter.HandleFunc("/collections", collectionHandler.CreateCollectionHandler).Methods("POST")
	protectedRouter.HandleFunc("/collections/{collectionID}/select", collectionHandler.SelectCollectionHandler).Methods("POST")
	protectedRouter.HandleFunc("/collections/{collectionID}", collectionHandler.DeleteCollectionHandler).Methods("DELETE")
	protectedRouter.HandleFunc("/collections/{collectionID}/codes", collectionHandler.AddCodesHandler).Methods("POST")
	protectedRouter.HandleFunc("/collections/{collectionID}/codes/{codeID}/use", collectionHandler.UseCodeHandler).Methods("POST")
	protectedRouter.HandleFunc("/collections/{collectionID}/codes/used", collectionHandler.DeleteUsedCodesHandler).Methods("DELETE")

	protectedRouter.HandleFunc("/analytics/stats", analyticsHandler.GetStatsHandler).Methods("GET")
	protectedRouter.HandleFunc("/analytics/monthly", analyticsHandler.GetMonthlyHandler).Methods("GET")
	protectedRouter.HandleFunc("/analytics/contributions", analyticsHandler.GetContributionsHandler).Methods("GET")
	protectedRouter.HandleFunc("/analytics/recent", analyticsHandler.GetRecentHandler).Methods("GET")

	handler := middleware.CORSHandler(cfg.AllowedOrigins)(r)

	log.Printf("Server starting on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}

// loadConfig は .env（開発環境のみ）と環境変数から設定を読み込みます。
func loadConfig() *config.Config {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.AppEnv != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("warning: Error loading .env file (this is fine in production): %v", err)
		}
		// .env の値を反映するためにもう一度読み込む
		cfg, err = config.NewConfig()
		if err != nil {
			log.Fatalf("設定の読み込みに失敗しました: %v", err)
		}
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		log.Fatal("SUPABASE_URL と SUPABASE_SERVICE_ROLE_KEY 環境変数が必要です")
	}
	if cfg.SupabaseJWTSecret == "" {
		log.Fatal("SUPABASE_JWT_SECRET 環境変数が必要です")
	}
	return cfg
}
