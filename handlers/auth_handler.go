package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"bira-buddy/backend/config"
	"bira-buddy/backend/database"
	"bira-buddy/backend/models"
	"bira-buddy/backend/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt" // 用於密碼哈希
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// sendJSONError 統一發送 JSON 格式錯誤響應
func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	var errorResponse models.ErrorResponse
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	errorResponse.Message = message
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		log.Printf("Failed to write error response: %v", err)
	}
}

// AuthHandler 處理註冊、登入與大學信箱驗證
type AuthHandler struct {
	cfg         *config.Config
	oauthConfig *oauth2.Config
}

// NewAuthHandler 創建並返回一個新的 AuthHandler 實例
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		cfg: cfg,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     google.Endpoint,
		},
	}
}

// emailAllowed 檢查信箱是否屬於允許的大學網域
func (h *AuthHandler) emailAllowed(email string) bool {
	if h.cfg.AllowedEmailDomain == "" {
		return true // 未配置網域限制時放行 (開發環境)
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(h.cfg.AllowedEmailDomain))
}

// RegisterUser 處理使用者註冊請求
func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
		log.Printf("JSON decode error: %v", err)
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	// 基本的輸入驗證
	if registerReq.Email == "" || registerReq.Nickname == "" || registerReq.Password == "" {
		sendJSONError(w, "Email, nickname, and password are required", http.StatusBadRequest)
		return
	}
	if !h.emailAllowed(registerReq.Email) {
		sendJSONError(w, "A university email address is required", http.StatusForbidden)
		return
	}

	usersCollection := database.GetCollection("users")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 先檢查 Email，如果存在則直接返回
	var existingUser models.User
	err := usersCollection.FindOne(ctx, bson.M{"email": registerReq.Email}).Decode(&existingUser)
	if err == nil {
		sendJSONError(w, "Email already registered", http.StatusConflict)
		return
	}
	if err != mongo.ErrNoDocuments { // 如果不是找不到文件，而是其他錯誤
		log.Printf("Error checking existing email: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// 哈希密碼
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registerReq.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// 創建新使用者，尚未通過信箱驗證
	user := models.User{
		Email:     registerReq.Email,
		Nickname:  registerReq.Nickname,
		Password:  string(hashedPassword),
		Major:     registerReq.Major,
		Instagram: registerReq.Instagram,
		Verified:  false,
	}

	result, err := usersCollection.InsertOne(ctx, user)
	if err != nil {
		log.Printf("Error inserting user: %v", err)
		sendJSONError(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	log.Printf("User registered successfully: %v", result.InsertedID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated) // 201 Created
	json.NewEncoder(w).Encode(map[string]string{
		"message": "User registered successfully",
		"id":      result.InsertedID.(primitive.ObjectID).Hex(),
	})
}

// LoginUser 處理使用者登入請求，成功時簽發 JWT
func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		log.Printf("JSON decode error: %v", err)
		sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if credentials.Email == "" || credentials.Password == "" {
		sendJSONError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	usersCollection := database.GetCollection("users")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 透過 Email 尋找使用者
	var user models.User
	err := usersCollection.FindOne(ctx, bson.M{"email": credentials.Email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			sendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		} else {
			log.Printf("Error finding user by email: %v", err)
			sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	// 比較哈希後的密碼
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(credentials.Password)); err != nil {
		sendJSONError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := utils.GenerateJWT(user.ID, user.Nickname, h.cfg.JWTSecret)
	if err != nil {
		log.Printf("Error generating JWT: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("User logged in successfully: %s", user.Email)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "Login successful",
		"id":       user.ID.Hex(), // 將 ObjectID 轉換為 Hex 字串
		"nickname": user.Nickname,
		"verified": user.Verified,
		"token":    token,
	})
}

// GoogleLogin 導向 Google 授權頁，用大學 Google 帳號完成信箱驗證
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	// 隨機 state 防 CSRF，放在短效 cookie 中讓 callback 核對
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	state := base64.URLEncoding.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		MaxAge:   300,
		HttpOnly: true,
	})
	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback 處理 Google 授權回調：
// 換取 token、讀取信箱、確認屬於大學網域後將帳號標記為已驗證並簽發 JWT。
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || r.URL.Query().Get("state") != stateCookie.Value {
		sendJSONError(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	token, err := h.oauthConfig.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		log.Printf("OAuth exchange failed: %v", err)
		sendJSONError(w, "OAuth exchange failed", http.StatusBadGateway)
		return
	}

	resp, err := h.oauthConfig.Client(ctx, token).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		log.Printf("Error fetching Google userinfo: %v", err)
		sendJSONError(w, "Failed to fetch user info", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		sendJSONError(w, "Failed to read user info", http.StatusBadGateway)
		return
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil || info.Email == "" {
		sendJSONError(w, "Invalid user info response", http.StatusBadGateway)
		return
	}

	if !h.emailAllowed(info.Email) {
		sendJSONError(w, "A university email address is required", http.StatusForbidden)
		return
	}

	usersCollection := database.GetCollection("users")

	// 已註冊的帳號標記為已驗證
	var user models.User
	err = usersCollection.FindOneAndUpdate(ctx,
		bson.M{"email": info.Email},
		bson.M{"$set": bson.M{"verified": true}},
	).Decode(&user)
	if err == mongo.ErrNoDocuments {
		sendJSONError(w, "No account registered with this email", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error verifying user %s: %v", info.Email, err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	jwtToken, err := utils.GenerateJWT(user.ID, user.Nickname, h.cfg.JWTSecret)
	if err != nil {
		log.Printf("Error generating JWT: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("User verified via Google: %s", info.Email)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "Email verified",
		"id":       user.ID.Hex(),
		"nickname": user.Nickname,
		"verified": true,
		"token":    jwtToken,
	})
}

// DeleteAccount 刪除目前登入的帳號並級聯清理相關房間資料
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := database.DeleteUserCascade(r.Context(), userID, database.NewRoomStore()); err != nil {
		log.Printf("Error deleting account %s: %v", userID.Hex(), err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("Account deleted: %s", userID.Hex())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
