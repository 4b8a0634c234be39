package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"bira-buddy/backend/database"
	"bira-buddy/backend/models"
	"bira-buddy/backend/rooms"
	"bira-buddy/backend/utils"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// 將訊息寫入到遠端對等點的最長時間
	writeWait = 10 * time.Second

	// 允許從遠端對等點讀取下一個 pong 訊息的最長時間。
	pongWait = 60 * time.Second

	// 發送 ping 訊息給遠端對等點的週期。
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// upgrader 用於將 HTTP 連線升級為 WebSocket 連線
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 設定true:允許所有來源的連線
		return true
	},
}

// 由 main 在啟動時注入，用於連線前的權限檢查
var (
	workflow  *rooms.Workflow
	jwtSecret string
)

// Configure 注入聊天閘門所需的依賴
func Configure(w *rooms.Workflow, secret string) {
	workflow = w
	jwtSecret = secret
}

// Client 代表一個 WebSocket 客戶端
type Client struct {
	hub      *Hub                // 負責管理所有客戶端和訊息流
	conn     *websocket.Conn     // WebSocket 連線物件，透過它來讀寫訊息
	send     chan models.Message // 用於發送訊息的緩衝通道
	UserID   primitive.ObjectID
	Nickname string
	RoomID   string // 客戶端所在的房間ID
}

// 讀取用戶傳來的訊息，並丟給 Hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, p, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("Client disconnected gracefully.")
			} else {
				log.Printf("Error reading message: %v", err)
			}
			break
		}

		// 解析收到的訊息為 models.Message
		var msg models.Message
		if err := json.Unmarshal(p, &msg); err != nil {
			log.Printf("Error unmarshalling message: %v", err)
			continue
		}

		// 填充發送者資訊、房間資訊和時間戳，
		// 單一房間內的訊息順序由時間戳的附加順序保證
		msg.Type = models.MessageTypeNormal
		msg.SenderID = c.UserID
		msg.SenderNickname = c.Nickname
		msg.RoomID = c.RoomID
		msg.Timestamp = time.Now()

		// 將訊息儲存到資料庫並獲得結果
		result, err := database.InsertMessage(msg)
		if err != nil {
			log.Printf("Error saving message to database: %v", err)
			return
		}

		// 設置訊息的 ID 為資料庫生成的唯一 ID
		msg.ID = result.InsertedID.(primitive.ObjectID)

		// 將包含 ID 的訊息廣播給房間內所有客戶端
		c.hub.Broadcast <- msg
	}
}

// 接收 Hub 廣播來的訊息，丟給前端
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 如果這個 channel 被關閉了（ok == false），就送出 CloseMessage
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			jsonMessage, err := json.Marshal(message)
			if err != nil {
				log.Printf("Error marshalling message: %v", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, jsonMessage); err != nil {
				log.Printf("Error writing message: %v", err)
				return
			}

		// 接收定時器以保持連線活躍並檢測客戶端是否仍在線。
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub 維護所有活躍的 WebSocket 客戶端，並處理訊息的廣播
type Hub struct {
	clients       map[*Client]bool
	clientsByRoom map[string]map[*Client]bool // 按房間ID索引的客戶端
	Broadcast     chan models.Message
	register      chan *Client
	unregister    chan *Client
}

// NewHub 創建並返回一個新的 Hub 實例
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan models.Message),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		clients:       make(map[*Client]bool),
		clientsByRoom: make(map[string]map[*Client]bool),
	}
}

// Run 啟動 Hub 的運行迴圈
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			if _, ok := h.clientsByRoom[client.RoomID]; !ok {
				h.clientsByRoom[client.RoomID] = make(map[*Client]bool)
			}
			h.clientsByRoom[client.RoomID][client] = true
			log.Printf("Client %s registered to room %s. Total clients in room: %d", client.UserID.Hex(), client.RoomID, len(h.clientsByRoom[client.RoomID]))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if _, ok := h.clientsByRoom[client.RoomID]; ok {
					delete(h.clientsByRoom[client.RoomID], client)
					if len(h.clientsByRoom[client.RoomID]) == 0 {
						delete(h.clientsByRoom, client.RoomID) // 如果房間沒有客戶端了，就刪除房間
					}
				}
				close(client.send)
				log.Printf("Client %s unregistered from room %s. Total clients in room: %d", client.UserID.Hex(), client.RoomID, len(h.clientsByRoom[client.RoomID]))
			}
		case message := <-h.Broadcast:
			// 廣播訊息到特定房間
			if clientsInRoom, ok := h.clientsByRoom[message.RoomID]; ok {
				for client := range clientsInRoom {
					select {
					case client.send <- message:
					default:
						close(client.send)
						delete(clientsInRoom, client)
						if len(clientsInRoom) == 0 {
							delete(h.clientsByRoom, message.RoomID)
						}
						delete(h.clients, client) // 從總客戶端列表中移除
						log.Printf("Client channel is full, unregistered client %s from room %s", client.UserID.Hex(), client.RoomID)
					}
				}
			}
		}
	}
}

// 全局 Hub 實例
var GlobalHub = NewHub()

// HandleConnections 處理 WebSocket 連線請求。
// 只有房間的創建者與成員可以連上聊天，身分由 token 查詢參數中的 JWT 判定。
func HandleConnections(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	roomIDStr := r.URL.Query().Get("roomId")
	nickname := r.URL.Query().Get("nickname")

	if tokenString == "" || roomIDStr == "" {
		http.Error(w, "Token and room ID are required for WebSocket connection", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromToken(tokenString, jwtSecret)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	roomID, err := primitive.ObjectIDFromHex(roomIDStr)
	if err != nil {
		http.Error(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}

	// 可見性閘門：過期房間在這裡被刪除，非成員直接拒絕
	room, err := workflow.GetRoom(r.Context(), roomID)
	if err != nil {
		http.Error(w, "Room not available", http.StatusNotFound)
		return
	}
	switch rooms.RoleFor(room, userID) {
	case rooms.RoleCreator, rooms.RoleParticipant:
	default:
		http.Error(w, "Only participants can join the chat", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		hub:      GlobalHub,
		conn:     conn,
		send:     make(chan models.Message, 256),
		UserID:   userID,
		Nickname: nickname,
		RoomID:   roomIDStr,
	}
	client.hub.register <- client

	// 在單獨的 goroutine 中發送歷史訊息
	go func() {
		// 獲取最近的歷史訊息 (針對特定房間，依時間戳升序)
		historicalMessages, err := database.GetChatHistory(client.RoomID)
		if err != nil {
			log.Printf("Error getting historical messages for room %s: %v", client.RoomID, err)
			return
		}

		for _, msg := range historicalMessages {
			select {
			case client.send <- msg:
			case <-time.After(time.Second): // 防止阻塞(如果訊息放入時等待超過1秒鐘就return)
				log.Printf("Timeout sending historical message to client %s in room %s", client.UserID.Hex(), client.RoomID)
				return
			}
		}
	}()

	go client.writePump()
	client.readPump() // readPump 會在連線關閉時自動取消註冊
}

// BroadcastMessage 將訊息交給全局 Hub 廣播
func BroadcastMessage(msg models.Message) {
	GlobalHub.Broadcast <- msg
}

// HandleChatHistory 處理獲取聊天記錄的請求 (成員限定，透過 JWT middleware 保護)
func HandleChatHistory(w http.ResponseWriter, r *http.Request) {
	roomIDStr := r.URL.Query().Get("roomId")
	if roomIDStr == "" {
		http.Error(w, "Room ID is required", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, err := primitive.ObjectIDFromHex(roomIDStr)
	if err != nil {
		http.Error(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}

	room, err := workflow.GetRoom(r.Context(), roomID)
	if err != nil {
		http.Error(w, "Room not available", http.StatusNotFound)
		return
	}
	switch rooms.RoleFor(room, userID) {
	case rooms.RoleCreator, rooms.RoleParticipant:
	default:
		http.Error(w, "Only participants can read the chat", http.StatusForbidden)
		return
	}

	messages, err := database.GetChatHistory(roomIDStr)
	if err != nil {
		log.Printf("Error getting chat history for room %s: %v", roomIDStr, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Messages []models.Message `json:"messages"`
	}{Messages: messages})
}
