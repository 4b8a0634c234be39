package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageType 定義消息類型
type MessageType string

const (
	MessageTypeNormal MessageType = "normal"            // 普通消息
	MessageTypeSystem MessageType = "system"            // 系統消息
	MessageTypeUpdate MessageType = "room_state_update" // 房間狀態更新消息(需隱藏)
)

// Message 代表一個房間內的聊天訊息
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Type           MessageType        `bson:"type" json:"type"` // 消息類型
	SenderID       primitive.ObjectID `bson:"senderId" json:"senderId"`
	SenderNickname string             `bson:"senderNickname" json:"senderNickname"`
	RoomID         string             `bson:"roomId" json:"roomId"` // 房間ID
	Content        string             `bson:"content" json:"content"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}
