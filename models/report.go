package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportStatus 檢舉的處理狀態，後續由管理端人工審核
type ReportStatus string

const (
	ReportStatusPending ReportStatus = "pending"
)

// Report 代表一筆針對房間內其他成員的檢舉
type Report struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RoomID     primitive.ObjectID `bson:"roomId" json:"roomId"`
	ReporterID primitive.ObjectID `bson:"reporterId" json:"reporterId"`
	ReportedID primitive.ObjectID `bson:"reportedId" json:"reportedId"`
	Reason     string             `bson:"reason" json:"reason"`
	Status     ReportStatus       `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
