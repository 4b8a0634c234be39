package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType 定義通知的種類
type NotificationType string

const (
	NotificationJoinRequested NotificationType = "join_requested" // 有人申請加入你的房間
	NotificationApproved      NotificationType = "approved"       // 你的申請被批准
	NotificationDeclined      NotificationType = "declined"       // 你的申請被拒絕
	NotificationKicked        NotificationType = "kicked"         // 你被移出房間
	NotificationRoomDeleted   NotificationType = "room_deleted"   // 你所在的房間被刪除
)

// Notification 代表一則發給特定使用者的站內通知
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"` // 收件人
	Type      NotificationType   `bson:"type" json:"type"`
	RoomID    primitive.ObjectID `bson:"roomId" json:"roomId"`
	Message   string             `bson:"message" json:"message"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Read      bool               `bson:"read" json:"read"`
}
