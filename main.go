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

	"bira-buddy/backend/config"
	"bira-buddy/backend/database"
	"bira-buddy/backend/handlers"
	"bira-buddy/backend/middleware"
	"bira-buddy/backend/notify"
	"bira-buddy/backend/rooms"
	"bira-buddy/backend/websocket"

	"github.com/gorilla/mux"
	"github.com/rs/cors" // 引入 CORS 庫
)

func main() {
	cfg := config.LoadConfig()

	database.ConnectMongoDB(cfg.MongoDBURI, cfg.DBName)
	defer database.DisconnectMongoDB()

	notifier := notify.NewRedisNotifier(cfg.RedisAddr)
	defer notifier.Close()

	roomStore := database.NewRoomStore()
	profiles := database.NewProfileDirectory()
	workflow := rooms.NewWorkflow(roomStore, notifier, profiles, cfg.LiveWindow)

	websocket.Configure(workflow, cfg.JWTSecret)
	go websocket.GlobalHub.Run()

	authHandler := handlers.NewAuthHandler(cfg)
	roomHandler := handlers.NewRoomHandler(workflow, profiles)
	reportHandler := handlers.NewReportHandler(workflow)

	router := mux.NewRouter()

	// 健康檢查路由
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Backend is running!")
	}).Methods("GET")

	// 公開路由：註冊、登入與大學信箱驗證
	router.HandleFunc("/register", authHandler.RegisterUser).Methods("POST")
	router.HandleFunc("/login", authHandler.LoginUser).Methods("POST")
	router.HandleFunc("/auth/google/login", authHandler.GoogleLogin).Methods("GET")
	router.HandleFunc("/auth/google/callback", authHandler.GoogleCallback).Methods("GET")

	// WebSocket 連線自帶 token，權限檢查在升級前完成
	router.HandleFunc("/ws", websocket.HandleConnections)

	// 受保護路由：需要有效的 JWT
	api := router.PathPrefix("/").Subrouter()
	api.Use(middleware.JWTMiddleware(cfg.JWTSecret))

	api.HandleFunc("/account", authHandler.DeleteAccount).Methods("DELETE")
	api.HandleFunc("/notifications", roomHandler.GetNotifications).Methods("GET")
	api.HandleFunc("/chat/history", websocket.HandleChatHistory).Methods("GET")

	api.HandleFunc("/rooms", roomHandler.CreateRoom).Methods("POST")
	api.HandleFunc("/rooms", roomHandler.ListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", roomHandler.GetRoom).Methods("GET")
	api.HandleFunc("/rooms/{id}", roomHandler.DeleteRoom).Methods("DELETE")
	api.HandleFunc("/rooms/{id}/requests", roomHandler.RequestToJoin).Methods("POST")
	api.HandleFunc("/rooms/{id}/requests", roomHandler.CancelRequest).Methods("DELETE")
	api.HandleFunc("/rooms/{id}/requests/approve-all", roomHandler.ApproveAll).Methods("POST")
	api.HandleFunc("/rooms/{id}/requests/{uid}/approve", roomHandler.Approve).Methods("POST")
	api.HandleFunc("/rooms/{id}/requests/{uid}/decline", roomHandler.Decline).Methods("POST")
	api.HandleFunc("/rooms/{id}/leave", roomHandler.Leave).Methods("POST")
	api.HandleFunc("/rooms/{id}/kick/{uid}", roomHandler.Kick).Methods("POST")
	api.HandleFunc("/rooms/{id}/reports", reportHandler.CreateReport).Methods("POST")

	// 設置 CORS 中介軟體
	// 實際生產環境中，你應該將 AllowedOrigins 限制為你的前端網域
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	// 將 CORS 中介軟體應用到你的路由上
	handler := c.Handler(router)

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler, // 將處理器替換為帶有 CORS 的 handler
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// 如果錯誤不是因為主動關閉伺服器，就記錄錯誤並結束程式
			log.Fatalf("Could not listen on %s: %v", serverAddr, err)
		}
	}()

	//當按下 Ctrl+C，程式會收到 SIGINT
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %s, shutting down server...", sig)

	//最多等30秒關閉，避免資料損壞，請求中斷
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully.")
}
