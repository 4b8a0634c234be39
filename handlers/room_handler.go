package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"bira-buddy/backend/database"
	"bira-buddy/backend/models"
	"bira-buddy/backend/rooms"
	"bira-buddy/backend/utils"
	"bira-buddy/backend/websocket"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateRoomRequest 定義創建房間的請求體
type CreateRoomRequest struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	BarName         string    `json:"barName"`
	Neighborhood    string    `json:"neighborhood"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	MaxParticipants int       `json:"maxParticipants"`
}

// RoomHandler 把房間生命週期的操作接到 HTTP 端點上
type RoomHandler struct {
	workflow *rooms.Workflow
	profiles rooms.Profiles
}

// NewRoomHandler 創建並返回一個新的 RoomHandler 實例
func NewRoomHandler(workflow *rooms.Workflow, profiles rooms.Profiles) *RoomHandler {
	return &RoomHandler{workflow: workflow, profiles: profiles}
}

// errToStatus 將工作流程層的錯誤分類映射到 HTTP 狀態碼。
// 前置條件錯誤直接回報給使用者，不做重試。
func errToStatus(err error) int {
	switch {
	case rooms.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, rooms.ErrRoomNotFound), errors.Is(err, rooms.ErrRequestNotFound), errors.Is(err, rooms.ErrNotParticipant):
		return http.StatusNotFound
	case errors.Is(err, rooms.ErrRoomExpired):
		return http.StatusGone
	case errors.Is(err, rooms.ErrRoomFull), errors.Is(err, rooms.ErrAlreadyParticipant), errors.Is(err, rooms.ErrAlreadyRequested):
		return http.StatusConflict
	case errors.Is(err, rooms.ErrNotCreator), errors.Is(err, rooms.ErrSelfAction), errors.Is(err, rooms.ErrCreatorCannotLeave):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// handleWorkflowError 回報工作流程錯誤，5xx 另外記錄日誌
func handleWorkflowError(w http.ResponseWriter, err error) {
	status := errToStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("Workflow error: %v", err)
		sendJSONError(w, "Internal server error", status)
		return
	}
	sendJSONError(w, err.Error(), status)
}

// pathObjectID 從 URL 路徑變數解析 ObjectID
func pathObjectID(r *http.Request, name string) (primitive.ObjectID, bool) {
	idStr := mux.Vars(r)[name]
	if idStr == "" {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// broadcastRoomUpdate 透過 WebSocket 通知房間內的客戶端狀態已變更，
// 客戶端收到後重新拉取房間資料 (即時訂閱的回圈)
func broadcastRoomUpdate(roomID primitive.ObjectID) {
	websocket.GlobalHub.Broadcast <- models.Message{
		Type:           models.MessageTypeUpdate,
		RoomID:         roomID.Hex(),
		SenderID:       primitive.NilObjectID, // 系統訊息 SenderID 為空
		SenderNickname: "系統更新",
		Content:        "房間狀態已更新。", // 內容不重要，前端主要依賴類型判斷
		Timestamp:      time.Now(),
	}
}

// viewOf 以觀看者的身分組裝房間視圖
func (h *RoomHandler) viewOf(room *models.Room, viewerID primitive.ObjectID) rooms.View {
	return rooms.ViewFor(room, viewerID, h.workflow.StatusOf(room))
}

// CreateRoom 處理創建房間的請求
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	room, err := h.workflow.CreateRoom(r.Context(), rooms.CreateRoomInput{
		Name:            req.Name,
		Description:     req.Description,
		BarName:         req.BarName,
		Neighborhood:    req.Neighborhood,
		ScheduledAt:     req.ScheduledAt,
		MaxParticipants: req.MaxParticipants,
		CreatorID:       userID,
		CreatorNickname: h.profiles.Nickname(r.Context(), userID),
	})
	if err != nil {
		handleWorkflowError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.viewOf(room, userID))
}

// ListRooms 列出所有未過期的房間，內容依觀看者身分過濾
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomList, err := h.workflow.ListRooms(r.Context())
	if err != nil {
		handleWorkflowError(w, err)
		return
	}

	views := make([]rooms.View, 0, len(roomList))
	for i := range roomList {
		views = append(views, h.viewOf(&roomList[i], userID))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// GetRoom 取得單一房間，內容依觀看者身分過濾
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, ok := pathObjectID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}

	room, err := h.workflow.GetRoom(r.Context(), roomID)
	if err != nil {
		handleWorkflowError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.viewOf(room, userID))
}

// DeleteRoom 處理創建者刪除房間的請求
func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, ok := pathObjectID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}

	if err := h.workflow.DeleteRoom(r.Context(), roomID, userID); err != nil {
		handleWorkflowError(w, err)
		return
	}

	broadcastRoomUpdate(roomID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// RequestToJoin 處理加入申請
func (h *RoomHandler) RequestToJoin(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, ok := pathObjectID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}

	if err := h.workflow.RequestToJoin(r.Context(), roomID, userID); err != nil {
		handleWorkflowError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// CancelRequest 處理申請者收回加入申請，重複呼叫是 no-op
func (h *RoomHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, ok := pathObjectID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}

	if err := h.workflow.CancelRequest(r.Context(), roomID, userID); err != nil {
		handleWorkflowError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// Approve 處理創建者批准加入申請
func (h *RoomHandler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, ok := pathObjectID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}
	requesterID, ok := pathObjectID(r, "uid")
	if !ok {
		sendJSONError(w, "Invalid requester ID format", http.StatusBadRequest)
		return
	}

	if err := h.workflow.Approve(r.Context(), roomID, requesterID, userID); err != nil {
		handleWorkflowError(w, err)
		return
	}

	broadcastRoomUpdate(roomID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// Decline 處理創建者拒絕加入申請
func (h *RoomHandler) Decline(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, ok := pathObjectID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}
	requesterID, ok := pathObjectID(r, "uid")
	if !ok {
		sendJSONError(w, "Invalid requester ID format", http.StatusBadRequest)
		return
	}

	if err := h.workflow.Decline(r.Context(), roomID, requesterID, userID); err != nil {
		handleWorkflowError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// ApproveAll 依序批准所有待處理申請直到滿員，剩餘申請保留
func (h *RoomHandler) ApproveAll(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, ok := pathObjectID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}

	approved, err := h.workflow.ApproveAll(r.Context(), roomID, userID)
	if err != nil {
		handleWorkflowError(w, err)
		return
	}

	if approved > 0 {
		broadcastRoomUpdate(roomID)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"approved": approved})
}

// Leave 處理成員自願離開房間
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, ok := pathObjectID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}

	if err := h.workflow.Leave(r.Context(), roomID, userID); err != nil {
		handleWorkflowError(w, err)
		return
	}

	broadcastRoomUpdate(roomID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// Kick 處理創建者將成員移出房間
func (h *RoomHandler) Kick(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID, ok := pathObjectID(r, "id")
	if !ok {
		sendJSONError(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}
	targetID, ok := pathObjectID(r, "uid")
	if !ok {
		sendJSONError(w, "Invalid target ID format", http.StatusBadRequest)
		return
	}

	if err := h.workflow.Kick(r.Context(), roomID, targetID, userID); err != nil {
		handleWorkflowError(w, err)
		return
	}

	broadcastRoomUpdate(roomID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// GetNotifications 取得目前使用者的通知列表
func (h *RoomHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	notifications, err := database.GetNotifications(userID)
	if err != nil {
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notifications)
}
