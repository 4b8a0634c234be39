package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"bira-buddy/backend/database"
	"bira-buddy/backend/models"
	"bira-buddy/backend/rooms"
	"bira-buddy/backend/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateReportRequest 定義檢舉的請求體
type CreateReportRequest struct {
	ReportedID string `json:"reportedId"`
	Reason     string `json:"reason"`
}

// ReportHandler 處理房間內的使用者檢舉
type ReportHandler struct {
	workflow *rooms.Workflow
}

// NewReportHandler 創建並返回一個新的 ReportHandler 實例
func NewReportHandler(workflow *rooms.Workflow) *ReportHandler {
	return &ReportHandler{workflow: workflow}
}

// CreateReport 寫入一筆檢舉。檢舉人必須是房間成員，而且不能檢舉自己。
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
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

	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	reportedID, err := primitive.ObjectIDFromHex(req.ReportedID)
	if err != nil {
		sendJSONError(w, "Invalid reported user ID format", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		sendJSONError(w, "Reason is required", http.StatusBadRequest)
		return
	}
	if reportedID == userID {
		sendJSONError(w, "Cannot report yourself", http.StatusForbidden)
		return
	}

	room, err := h.workflow.GetRoom(r.Context(), roomID)
	if err != nil {
		handleWorkflowError(w, err)
		return
	}

	// 檢舉共用可見性閘門：只有成員 (含創建者) 能檢舉
	switch rooms.RoleFor(room, userID) {
	case rooms.RoleCreator, rooms.RoleParticipant:
	default:
		sendJSONError(w, "Only participants can file a report", http.StatusForbidden)
		return
	}

	report := models.Report{
		RoomID:     roomID,
		ReporterID: userID,
		ReportedID: reportedID,
		Reason:     req.Reason,
		Status:     models.ReportStatusPending,
		CreatedAt:  time.Now(),
	}

	result, err := database.InsertReport(report)
	if err != nil {
		log.Printf("Error inserting report: %v", err)
		sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Report submitted",
		"id":      result.InsertedID.(primitive.ObjectID).Hex(),
	})
}
