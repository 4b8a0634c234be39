package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RegisterRequest 結構體用於處理註冊請求
type RegisterRequest struct {
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	Password  string `json:"password"`
	Major     string `json:"major"`
	Instagram string `json:"instagram"`
}

// ErrorResponse 結構體用於返回 JSON 格式的錯誤訊息
type ErrorResponse struct {
	Message string `json:"message"`
}

// User 結構體定義了使用者資料的欄位
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"` // MongoDB 的唯一 ID
	Email     string             `bson:"email" json:"email"`                // 大學信箱
	Nickname  string             `bson:"nickname" json:"nickname"`         // 顯示名稱
	Password  string             `bson:"password" json:"-"`                // 儲存哈希後的密碼，JSON 輸出時忽略
	Major     string             `bson:"major,omitempty" json:"major,omitempty"`
	Instagram string             `bson:"instagram,omitempty" json:"instagram,omitempty"`
	Verified  bool               `bson:"verified" json:"verified"` // 是否已通過大學信箱驗證
}

// 註：`Password` 欄位在儲存到資料庫前會被哈希，`json:"-"` 表示在 JSON 序列化時忽略此欄位，避免將密碼暴露出去。
// Email 的唯一索引會在 MongoDB 連線初始化時建立。
