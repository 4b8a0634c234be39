package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoomStatus 表示房間目前所處的時間階段
type RoomStatus string

const (
	RoomStatusUpcoming RoomStatus = "upcoming" // 尚未開始
	RoomStatusLive     RoomStatus = "live"     // 進行中
	RoomStatusEnded    RoomStatus = "ended"    // 已結束但尚未過期
	RoomStatusExpired  RoomStatus = "expired"  // 已過期，應被刪除
)

// Participant 代表房間中已被批准的成員
type Participant struct {
	UserID   primitive.ObjectID `bson:"userId" json:"userId"`
	Nickname string             `bson:"nickname" json:"nickname"`
	JoinedAt time.Time          `bson:"joinedAt" json:"joinedAt"`
}

// JoinRequest 代表一筆尚未處理的加入申請
type JoinRequest struct {
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	RequestedAt time.Time          `bson:"requestedAt" json:"requestedAt"`
}

// Room 代表一場預定的聚會
type Room struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name            string             `bson:"name" json:"name"`
	Description     string             `bson:"description" json:"description"`
	BarName         string             `bson:"barName" json:"barName"`
	Neighborhood    string             `bson:"neighborhood" json:"neighborhood"`
	ScheduledAt     time.Time          `bson:"scheduledAt" json:"scheduledAt"`
	MaxParticipants int                `bson:"maxParticipants" json:"maxParticipants"`
	CreatorID       primitive.ObjectID `bson:"creatorId" json:"creatorId"`
	Participants    []Participant      `bson:"participants" json:"participants"`
	JoinRequests    []JoinRequest      `bson:"joinRequests" json:"joinRequests"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// HasParticipant 檢查某個使用者是否已是成員
func (r *Room) HasParticipant(uid primitive.ObjectID) bool {
	for _, p := range r.Participants {
		if p.UserID == uid {
			return true
		}
	}
	return false
}

// HasJoinRequest 檢查某個使用者是否有待處理的加入申請
func (r *Room) HasJoinRequest(uid primitive.ObjectID) bool {
	for _, req := range r.JoinRequests {
		if req.UserID == uid {
			return true
		}
	}
	return false
}

// IsFull 檢查房間是否已滿
func (r *Room) IsFull() bool {
	return len(r.Participants) >= r.MaxParticipants
}
