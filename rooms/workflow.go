package rooms

import (
	"context"
	"log"
	"strings"
	"time"

	"bira-buddy/backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxNameLen        = 50
	maxDescriptionLen = 200
	minCapacity       = 2
	maxCapacity       = 10
	maxScheduleAhead  = 7 * 24 * time.Hour
)

// Workflow 實作房間生命週期的所有狀態轉換：
// 建立 → 申請加入 → 批准/拒絕/取消 → 成員/被踢出/離開 → 刪除或過期。
type Workflow struct {
	store      Store
	notifier   Notifier
	profiles   Profiles
	liveWindow time.Duration
	now        func() time.Time
}

// NewWorkflow 創建並返回一個新的 Workflow 實例
func NewWorkflow(store Store, notifier Notifier, profiles Profiles, liveWindow time.Duration) *Workflow {
	return &Workflow{
		store:      store,
		notifier:   notifier,
		profiles:   profiles,
		liveWindow: liveWindow,
		now:        time.Now,
	}
}

// SetClock 替換時間來源，測試用
func (w *Workflow) SetClock(now func() time.Time) {
	w.now = now
}

// StatusOf 回傳房間目前的階段
func (w *Workflow) StatusOf(room *models.Room) models.RoomStatus {
	return StatusAt(room.ScheduledAt, w.now(), w.liveWindow)
}

// CreateRoomInput 定義創建房間所需的輸入
type CreateRoomInput struct {
	Name            string
	Description     string
	BarName         string
	Neighborhood    string
	ScheduledAt     time.Time
	MaxParticipants int
	CreatorID       primitive.ObjectID
	CreatorNickname string
}

// CreateRoom 驗證輸入並建立新房間，創建者自動成為第一位成員
func (w *Workflow) CreateRoom(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	now := w.now()

	if s := strings.TrimSpace(in.Name); s == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	} else if len([]rune(s)) > maxNameLen {
		return nil, &ValidationError{Field: "name", Reason: "must be at most 50 characters"}
	}
	if s := strings.TrimSpace(in.BarName); s == "" {
		return nil, &ValidationError{Field: "barName", Reason: "required"}
	} else if len([]rune(s)) > maxNameLen {
		return nil, &ValidationError{Field: "barName", Reason: "must be at most 50 characters"}
	}
	if len([]rune(in.Description)) > maxDescriptionLen {
		return nil, &ValidationError{Field: "description", Reason: "must be at most 200 characters"}
	}
	if in.MaxParticipants < minCapacity || in.MaxParticipants > maxCapacity {
		return nil, &ValidationError{Field: "maxParticipants", Reason: "must be between 2 and 10"}
	}
	// 只在創建時檢查：時間必須落在現在到七天後之間
	if in.ScheduledAt.Before(now) {
		return nil, &ValidationError{Field: "scheduledAt", Reason: "must not be in the past"}
	}
	if in.ScheduledAt.After(now.Add(maxScheduleAhead)) {
		return nil, &ValidationError{Field: "scheduledAt", Reason: "must be within 7 days"}
	}

	room := models.Room{
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		BarName:         strings.TrimSpace(in.BarName),
		Neighborhood:    strings.TrimSpace(in.Neighborhood),
		ScheduledAt:     in.ScheduledAt,
		MaxParticipants: in.MaxParticipants,
		CreatorID:       in.CreatorID,
		// 工作流程的不變式：創建者從一開始就是成員
		Participants: []models.Participant{{
			UserID:   in.CreatorID,
			Nickname: in.CreatorNickname,
			JoinedAt: now,
		}},
		JoinRequests: []models.JoinRequest{},
		CreatedAt:    now,
	}

	id, err := w.store.InsertRoom(ctx, room)
	if err != nil {
		return nil, err
	}
	room.ID = id
	return &room, nil
}

// GetRoom 取得單一房間，套用 expire-on-read：
// 發現過期的房間時先刪除再回報過期，取代後端的 TTL 機制。
func (w *Workflow) GetRoom(ctx context.Context, roomID primitive.ObjectID) (*models.Room, error) {
	room, err := w.store.FindRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if IsExpired(room.ScheduledAt, w.now()) {
		if err := w.store.DeleteRoom(ctx, roomID); err != nil {
			log.Printf("Error deleting expired room %s: %v", roomID.Hex(), err)
		}
		return nil, ErrRoomExpired
	}
	return room, nil
}

// ListRooms 列出所有未過期的房間。任何觀察到過期房間的讀取路徑
// 都必須先發出刪除，兩個客戶端同時刪除同一房間時雙方都視為成功。
func (w *Workflow) ListRooms(ctx context.Context) ([]models.Room, error) {
	all, err := w.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	now := w.now()
	active := make([]models.Room, 0, len(all))
	for _, room := range all {
		if IsExpired(room.ScheduledAt, now) {
			if err := w.store.DeleteRoom(ctx, room.ID); err != nil {
				log.Printf("Error deleting expired room %s: %v", room.ID.Hex(), err)
			}
			continue
		}
		active = append(active, room)
	}
	return active, nil
}

// RequestToJoin 讓非成員對房間提出加入申請，並通知創建者
func (w *Workflow) RequestToJoin(ctx context.Context, roomID, uid primitive.ObjectID) error {
	room, err := w.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HasParticipant(uid) {
		// 創建者也是成員，因此這同時擋下創建者對自己房間的申請
		return ErrAlreadyParticipant
	}
	if room.HasJoinRequest(uid) {
		return ErrAlreadyRequested
	}
	if room.IsFull() {
		return ErrRoomFull
	}

	req := models.JoinRequest{UserID: uid, RequestedAt: w.now()}
	if err := w.store.PushJoinRequest(ctx, roomID, req); err != nil {
		return err
	}

	w.notify(ctx, models.Notification{
		UserID:  room.CreatorID,
		Type:    models.NotificationJoinRequested,
		RoomID:  roomID,
		Message: w.profiles.Nickname(ctx, uid) + " 申請加入「" + room.Name + "」",
	})
	return nil
}

// CancelRequest 讓申請者收回自己的加入申請。重複呼叫是 no-op。
func (w *Workflow) CancelRequest(ctx context.Context, roomID, uid primitive.ObjectID) error {
	room, err := w.store.FindRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil || !room.HasJoinRequest(uid) {
		// 房間已消失或申請已被處理，視為取消成功
		return nil
	}
	return w.store.PullJoinRequest(ctx, roomID, uid)
}

// Approve 批准一筆加入申請。容量檢查與申請移轉在儲存層以單一條件更新完成，
// 兩個並發批准競爭最後一個名額時只有先提交者成功，另一方收到 ErrRoomFull。
func (w *Workflow) Approve(ctx context.Context, roomID, requesterUID, actingUID primitive.ObjectID) error {
	if requesterUID == actingUID {
		return ErrSelfAction
	}

	room, err := w.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatorID != actingUID {
		return ErrNotCreator
	}
	if !room.HasJoinRequest(requesterUID) {
		return ErrRequestNotFound
	}

	p := models.Participant{
		UserID:   requesterUID,
		Nickname: w.profiles.Nickname(ctx, requesterUID),
		JoinedAt: w.now(),
	}
	matched, err := w.store.PromoteRequest(ctx, roomID, p)
	if err != nil {
		return err
	}
	if !matched {
		// 條件更新沒有命中：重新讀取一次來判斷原因
		return w.diagnoseApproveFailure(ctx, roomID, requesterUID)
	}

	w.notify(ctx, models.Notification{
		UserID:  requesterUID,
		Type:    models.NotificationApproved,
		RoomID:  roomID,
		Message: "你已獲准加入「" + room.Name + "」",
	})
	return nil
}

// diagnoseApproveFailure 在條件更新落空後判斷失敗原因
func (w *Workflow) diagnoseApproveFailure(ctx context.Context, roomID, requesterUID primitive.ObjectID) error {
	room, err := w.store.FindRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if room.IsFull() {
		return ErrRoomFull
	}
	return ErrRequestNotFound
}

// Decline 拒絕一筆加入申請，只移除申請本身，並通知申請者
func (w *Workflow) Decline(ctx context.Context, roomID, requesterUID, actingUID primitive.ObjectID) error {
	room, err := w.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatorID != actingUID {
		return ErrNotCreator
	}
	if !room.HasJoinRequest(requesterUID) {
		return ErrRequestNotFound
	}
	if err := w.store.PullJoinRequest(ctx, roomID, requesterUID); err != nil {
		return err
	}

	w.notify(ctx, models.Notification{
		UserID:  requesterUID,
		Type:    models.NotificationDeclined,
		RoomID:  roomID,
		Message: "你加入「" + room.Name + "」的申請被拒絕了",
	})
	return nil
}

// ApproveAll 依序批准所有待處理申請，滿員後剩餘的申請維持原狀不被丟棄。
// 回傳實際批准的人數。
func (w *Workflow) ApproveAll(ctx context.Context, roomID, actingUID primitive.ObjectID) (int, error) {
	room, err := w.GetRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if room.CreatorID != actingUID {
		return 0, ErrNotCreator
	}

	approved := 0
	for _, req := range room.JoinRequests {
		err := w.Approve(ctx, roomID, req.UserID, actingUID)
		if err == ErrRoomFull {
			break
		}
		if err != nil {
			return approved, err
		}
		approved++
	}
	return approved, nil
}

// Leave 讓成員自願離開房間。創建者不能離開，只能刪除房間。
func (w *Workflow) Leave(ctx context.Context, roomID, uid primitive.ObjectID) error {
	room, err := w.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatorID == uid {
		return ErrCreatorCannotLeave
	}
	if !room.HasParticipant(uid) {
		return ErrNotParticipant
	}
	return w.store.PullParticipant(ctx, roomID, uid)
}

// Kick 讓創建者將成員移出房間，並通知被移出者
func (w *Workflow) Kick(ctx context.Context, roomID, targetUID, actingUID primitive.ObjectID) error {
	if targetUID == actingUID {
		return ErrSelfAction
	}

	room, err := w.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatorID != actingUID {
		return ErrNotCreator
	}
	if !room.HasParticipant(targetUID) {
		return ErrNotParticipant
	}
	if err := w.store.PullParticipant(ctx, roomID, targetUID); err != nil {
		return err
	}

	w.notify(ctx, models.Notification{
		UserID:  targetUID,
		Type:    models.NotificationKicked,
		RoomID:  roomID,
		Message: "你已被移出「" + room.Name + "」",
	})
	return nil
}

// DeleteRoom 讓創建者刪除房間，連同聊天記錄與附屬資料一併清除。
// 房間已不存在時視為成功 (刪除是冪等的)。
func (w *Workflow) DeleteRoom(ctx context.Context, roomID, actingUID primitive.ObjectID) error {
	room, err := w.store.FindRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return nil
	}
	if room.CreatorID != actingUID {
		return ErrNotCreator
	}

	// 先通知剩餘成員再刪除
	for _, p := range room.Participants {
		if p.UserID == actingUID {
			continue
		}
		w.notify(ctx, models.Notification{
			UserID:  p.UserID,
			Type:    models.NotificationRoomDeleted,
			RoomID:  roomID,
			Message: "「" + room.Name + "」已被創建者刪除",
		})
	}
	return w.store.DeleteRoom(ctx, roomID)
}

// notify 發送通知，失敗只記錄不影響主要操作
func (w *Workflow) notify(ctx context.Context, n models.Notification) {
	n.CreatedAt = w.now()
	if err := w.notifier.Notify(ctx, n); err != nil {
		log.Printf("Error sending notification to %s: %v", n.UserID.Hex(), err)
	}
}
