package rooms

import (
	"time"

	"bira-buddy/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role 表示某個觀看者相對於房間的身分
type Role string

const (
	RoleCreator          Role = "creator"
	RoleParticipant      Role = "participant"
	RolePendingRequester Role = "pendingRequester"
	RoleStranger         Role = "stranger"
)

// RoleFor 由房間目前的狀態推導觀看者的身分，不持有任何獨立狀態
func RoleFor(room *models.Room, viewerID primitive.ObjectID) Role {
	if room.CreatorID == viewerID {
		return RoleCreator
	}
	if room.HasParticipant(viewerID) {
		return RoleParticipant
	}
	if room.HasJoinRequest(viewerID) {
		return RolePendingRequester
	}
	return RoleStranger
}

// View 是針對特定觀看者過濾後的房間資料，
// 欄位的可見性與可執行的動作完全由身分決定。
type View struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	Description      string               `json:"description"`
	Neighborhood     string               `json:"neighborhood"`
	BarName          string               `json:"barName,omitempty"` // 僅創建者與成員可見
	ScheduledAt      time.Time            `json:"scheduledAt"`
	Status           models.RoomStatus    `json:"status"`
	MaxParticipants  int                  `json:"maxParticipants"`
	ParticipantCount int                  `json:"participantCount"`
	Participants     []models.Participant `json:"participants"`
	JoinRequests     []models.JoinRequest `json:"joinRequests,omitempty"` // 僅創建者可見
	CreatorID        string               `json:"creatorId"`
	Role             Role                 `json:"role"`
	CanRequestJoin   bool                 `json:"canRequestJoin"`
	CanCancelRequest bool                 `json:"canCancelRequest"`
	CanChat          bool                 `json:"canChat"`
	CanManage        bool                 `json:"canManage"` // 批准/拒絕/踢人/刪除
}

// ViewFor 計算觀看者可以看到的房間內容：
//   - 確切地點 (barName) 只給創建者與成員，其他人只看得到 neighborhood
//   - 申請列表與管理操作只給創建者
//   - 「申請加入」只出現給陌生人，「取消申請」只出現給待批准者
func ViewFor(room *models.Room, viewerID primitive.ObjectID, status models.RoomStatus) View {
	role := RoleFor(room, viewerID)

	v := View{
		ID:               room.ID.Hex(),
		Name:             room.Name,
		Description:      room.Description,
		Neighborhood:     room.Neighborhood,
		ScheduledAt:      room.ScheduledAt,
		Status:           status,
		MaxParticipants:  room.MaxParticipants,
		ParticipantCount: len(room.Participants),
		Participants:     room.Participants,
		CreatorID:        room.CreatorID.Hex(),
		Role:             role,
	}

	switch role {
	case RoleCreator:
		v.BarName = room.BarName
		v.JoinRequests = room.JoinRequests
		v.CanChat = true
		v.CanManage = true
	case RoleParticipant:
		v.BarName = room.BarName
		v.CanChat = true
	case RolePendingRequester:
		v.CanCancelRequest = true
	case RoleStranger:
		v.CanRequestJoin = !room.IsFull() && status != models.RoomStatusExpired
	}
	return v
}
