package rooms

import (
	"context"

	"bira-buddy/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store 是房間持久層的抽象。所有修改都以相對的集合操作表達
// (加入/移除單一元素)，讓不同客戶端的並發更新可以交換順序。
type Store interface {
	// InsertRoom 建立新房間並回傳分配到的 ID
	InsertRoom(ctx context.Context, room models.Room) (primitive.ObjectID, error)

	// FindRoomByID 查找房間，不存在時回傳 (nil, nil)
	FindRoomByID(ctx context.Context, id primitive.ObjectID) (*models.Room, error)

	// ListRooms 回傳所有房間 (未過濾過期，由呼叫端套用 expire-on-read)
	ListRooms(ctx context.Context) ([]models.Room, error)

	// DeleteRoom 刪除房間及其附屬資料 (訊息、檢舉)。房間不存在視為成功。
	DeleteRoom(ctx context.Context, id primitive.ObjectID) error

	// PushJoinRequest 將一筆加入申請附加到房間
	PushJoinRequest(ctx context.Context, roomID primitive.ObjectID, req models.JoinRequest) error

	// PullJoinRequest 移除某使用者的加入申請，不存在時為 no-op
	PullJoinRequest(ctx context.Context, roomID, uid primitive.ObjectID) error

	// PromoteRequest 以單一條件更新將申請者轉為成員：
	// 只有在該使用者仍在 joinRequests 且成員數小於 maxParticipants 時才生效。
	// 條件不成立時回傳 matched == false，且不做任何修改。
	PromoteRequest(ctx context.Context, roomID primitive.ObjectID, p models.Participant) (matched bool, err error)

	// PullParticipant 將成員移出房間，不存在時為 no-op
	PullParticipant(ctx context.Context, roomID, uid primitive.ObjectID) error
}

// Notifier 是對外的通知介面，發送失敗不影響主要操作
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Profiles 提供使用者暱稱查詢，用於裝飾成員與申請列表。
// 查不到資料時實作必須回傳替代名稱而不是錯誤。
type Profiles interface {
	Nickname(ctx context.Context, uid primitive.ObjectID) string
}
