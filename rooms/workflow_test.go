package rooms

import (
	"context"
	"sync"
	"testing"
	"time"

	"bira-buddy/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

// fakeStore 是記憶體版的 Store，PromoteRequest 在鎖內完成條件檢查與修改，
// 模擬資料庫端單一條件更新的原子性
type fakeStore struct {
	mu    sync.Mutex
	rooms map[primitive.ObjectID]*models.Room
}

func newFakeStore() *fakeStore {
	return &fakeStore{rooms: make(map[primitive.ObjectID]*models.Room)}
}

func (s *fakeStore) InsertRoom(_ context.Context, room models.Room) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := primitive.NewObjectID()
	room.ID = id
	s.rooms[id] = &room
	return id, nil
}

func (s *fakeStore) FindRoomByID(_ context.Context, id primitive.ObjectID) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	clone := *room
	clone.Participants = append([]models.Participant(nil), room.Participants...)
	clone.JoinRequests = append([]models.JoinRequest(nil), room.JoinRequests...)
	return &clone, nil
}

func (s *fakeStore) ListRooms(_ context.Context) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, *room)
	}
	return out, nil
}

func (s *fakeStore) DeleteRoom(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id) // 不存在時為 no-op
	return nil
}

func (s *fakeStore) PushJoinRequest(_ context.Context, roomID primitive.ObjectID, req models.JoinRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok || room.HasJoinRequest(req.UserID) || room.HasParticipant(req.UserID) {
		return nil
	}
	room.JoinRequests = append(room.JoinRequests, req)
	return nil
}

func (s *fakeStore) PullJoinRequest(_ context.Context, roomID, uid primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	for i, req := range room.JoinRequests {
		if req.UserID == uid {
			room.JoinRequests = append(room.JoinRequests[:i], room.JoinRequests[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) PromoteRequest(_ context.Context, roomID primitive.ObjectID, p models.Participant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok || !room.HasJoinRequest(p.UserID) || room.IsFull() {
		return false, nil
	}
	for i, req := range room.JoinRequests {
		if req.UserID == p.UserID {
			room.JoinRequests = append(room.JoinRequests[:i], room.JoinRequests[i+1:]...)
			break
		}
	}
	room.Participants = append(room.Participants, p)
	return true, nil
}

func (s *fakeStore) PullParticipant(_ context.Context, roomID, uid primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	for i, p := range room.Participants {
		if p.UserID == uid {
			room.Participants = append(room.Participants[:i], room.Participants[i+1:]...)
			break
		}
	}
	return nil
}

// fakeProfiles 固定回傳可預期的暱稱
type fakeProfiles struct{}

func (fakeProfiles) Nickname(_ context.Context, uid primitive.ObjectID) string {
	return "user-" + uid.Hex()[:6]
}

var testNow = time.Date(2025, 10, 1, 18, 0, 0, 0, time.UTC)

// newTestWorkflow 建立掛上假儲存層與 mock 通知器的工作流程，時鐘固定
func newTestWorkflow(t *testing.T) (*Workflow, *fakeStore, *MockNotifier) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := newFakeStore()
	notifier := NewMockNotifier(ctrl)
	w := NewWorkflow(store, notifier, fakeProfiles{}, 3*time.Hour)
	w.SetClock(func() time.Time { return testNow })
	return w, store, notifier
}

func validInput(creatorID primitive.ObjectID, maxParticipants int) CreateRoomInput {
	return CreateRoomInput{
		Name:            "週五啤酒夜",
		Description:     "下課後一起喝一杯",
		BarName:         "山丘上的酒吧",
		Neighborhood:    "公館",
		ScheduledAt:     testNow.Add(24 * time.Hour),
		MaxParticipants: maxParticipants,
		CreatorID:       creatorID,
		CreatorNickname: "創建者",
	}
}

func TestCreateRoomValidation(t *testing.T) {
	w, _, _ := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()

	longName := make([]rune, 51)
	for i := range longName {
		longName[i] = '酒'
	}

	cases := []struct {
		name   string
		mutate func(*CreateRoomInput)
	}{
		{"名稱過長", func(in *CreateRoomInput) { in.Name = string(longName) }},
		{"名稱空白", func(in *CreateRoomInput) { in.Name = "  " }},
		{"酒吧名過長", func(in *CreateRoomInput) { in.BarName = string(longName) }},
		{"描述過長", func(in *CreateRoomInput) {
			desc := make([]rune, 201)
			for i := range desc {
				desc[i] = 'x'
			}
			in.Description = string(desc)
		}},
		{"人數太少", func(in *CreateRoomInput) { in.MaxParticipants = 1 }},
		{"人數太多", func(in *CreateRoomInput) { in.MaxParticipants = 11 }},
		{"時間在過去", func(in *CreateRoomInput) { in.ScheduledAt = testNow.Add(-time.Hour) }},
		{"時間超過七天", func(in *CreateRoomInput) { in.ScheduledAt = testNow.Add(8 * 24 * time.Hour) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput(creator, 4)
			tc.mutate(&in)
			_, err := w.CreateRoom(ctx, in)
			assert.True(t, IsValidation(err), "應回傳驗證錯誤，實際為 %v", err)
		})
	}
}

func TestCreateRoomCreatorIsParticipant(t *testing.T) {
	w, _, _ := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	// 不變式：創建者從一開始就是成員
	assert.True(t, room.HasParticipant(creator))
	assert.Len(t, room.Participants, 1)
	assert.Equal(t, creator, room.CreatorID)
	assert.Empty(t, room.JoinRequests)
}

func TestRequestThenApprove(t *testing.T) {
	w, _, notifier := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 2))
	require.NoError(t, err)

	// 申請通知創建者，批准通知申請者
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	require.NoError(t, w.RequestToJoin(ctx, room.ID, stranger))
	require.NoError(t, w.Approve(ctx, room.ID, stranger, creator))

	got, err := w.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, got.HasParticipant(stranger))
	assert.Empty(t, got.JoinRequests)
	assert.Len(t, got.Participants, 2)
}

func TestApproveWhenFull(t *testing.T) {
	w, _, notifier := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()
	first := primitive.NewObjectID()
	third := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 2))
	require.NoError(t, err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	// 2/2 滿員
	require.NoError(t, w.RequestToJoin(ctx, room.ID, first))
	require.NoError(t, w.Approve(ctx, room.ID, first, creator))

	// 滿員後申請直接被擋
	assert.ErrorIs(t, w.RequestToJoin(ctx, room.ID, third), ErrRoomFull)
}

func TestApproveRaceOnLastSlot(t *testing.T) {
	w, _, notifier := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()
	first := primitive.NewObjectID()
	second := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 2))
	require.NoError(t, err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	require.NoError(t, w.RequestToJoin(ctx, room.ID, first))
	require.NoError(t, w.RequestToJoin(ctx, room.ID, second))

	// 兩個並發批准競爭最後一個名額，只有一個能成功
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, uid := range []primitive.ObjectID{first, second} {
		wg.Add(1)
		go func(i int, uid primitive.ObjectID) {
			defer wg.Done()
			errs[i] = w.Approve(ctx, room.ID, uid, creator)
		}(i, uid)
	}
	wg.Wait()

	var success, full int
	var loser primitive.ObjectID
	for i, err := range errs {
		switch err {
		case nil:
			success++
		case ErrRoomFull:
			full++
			loser = []primitive.ObjectID{first, second}[i]
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, success, "恰好一個批准成功")
	assert.Equal(t, 1, full, "另一個批准收到 ErrRoomFull")

	got, err := w.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, got.MaxParticipants, "成員數不得超過上限")
	// 失敗方的申請保留在佇列中，不會被默默丟棄
	assert.True(t, got.HasJoinRequest(loser))
}

func TestSetExclusivity(t *testing.T) {
	w, _, notifier := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	require.NoError(t, w.RequestToJoin(ctx, room.ID, stranger))
	assert.ErrorIs(t, w.RequestToJoin(ctx, room.ID, stranger), ErrAlreadyRequested)

	require.NoError(t, w.Approve(ctx, room.ID, stranger, creator))
	assert.ErrorIs(t, w.RequestToJoin(ctx, room.ID, stranger), ErrAlreadyParticipant)

	// 同一個 uid 不可能同時出現在成員與申請兩個集合
	got, err := w.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, got.HasParticipant(stranger))
	assert.False(t, got.HasJoinRequest(stranger))
}

func TestCreatorCannotRequestOwnRoom(t *testing.T) {
	w, _, _ := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	assert.ErrorIs(t, w.RequestToJoin(ctx, room.ID, creator), ErrAlreadyParticipant)
}

func TestSelfApproveForbidden(t *testing.T) {
	w, _, _ := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	assert.ErrorIs(t, w.Approve(ctx, room.ID, creator, creator), ErrSelfAction)
}

func TestApproveRequiresCreator(t *testing.T) {
	w, _, notifier := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()
	requester := primitive.NewObjectID()
	impostor := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	require.NoError(t, w.RequestToJoin(ctx, room.ID, requester))
	assert.ErrorIs(t, w.Approve(ctx, room.ID, requester, impostor), ErrNotCreator)
	assert.ErrorIs(t, w.Decline(ctx, room.ID, requester, impostor), ErrNotCreator)
}

func TestDeclineRemovesOnlyRequest(t *testing.T) {
	w, _, notifier := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()
	requester := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	require.NoError(t, w.RequestToJoin(ctx, room.ID, requester))
	require.NoError(t, w.Decline(ctx, room.ID, requester, creator))

	got, err := w.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, got.JoinRequests)
	assert.Len(t, got.Participants, 1, "拒絕不改變成員")
}

func TestCancelRequestIdempotent(t *testing.T) {
	w, _, notifier := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()
	requester := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	require.NoError(t, w.RequestToJoin(ctx, room.ID, requester))
	require.NoError(t, w.CancelRequest(ctx, room.ID, requester))
	// 第二次取消是 no-op
	require.NoError(t, w.CancelRequest(ctx, room.ID, requester))

	got, err := w.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, got.JoinRequests)
}

func TestApproveAllStopsAtCapacity(t *testing.T) {
	w, _, notifier := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 3))
	require.NoError(t, err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	requesters := make([]primitive.ObjectID, 4)
	for i := range requesters {
		requesters[i] = primitive.NewObjectID()
		require.NoError(t, w.RequestToJoin(ctx, room.ID, requesters[i]))
	}

	approved, err := w.ApproveAll(ctx, room.ID, creator)
	require.NoError(t, err)
	assert.Equal(t, 2, approved, "容量 3 扣掉創建者剩 2 個名額")

	got, err := w.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 3)
	// 超出容量的申請保留，不被默默丟棄
	assert.Len(t, got.JoinRequests, 2)
}

func TestLeaveAndRejoin(t *testing.T) {
	w, _, notifier := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()
	member := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	require.NoError(t, w.RequestToJoin(ctx, room.ID, member))
	require.NoError(t, w.Approve(ctx, room.ID, member, creator))
	require.NoError(t, w.Leave(ctx, room.ID, member))

	got, err := w.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)

	// 離開過的使用者可以重新申請，不被歷史紀錄擋住
	require.NoError(t, w.RequestToJoin(ctx, room.ID, member))
}

func TestCreatorCannotLeave(t *testing.T) {
	w, _, _ := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	assert.ErrorIs(t, w.Leave(ctx, room.ID, creator), ErrCreatorCannotLeave)
}

func TestKick(t *testing.T) {
	w, _, notifier := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()
	member := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	require.NoError(t, w.RequestToJoin(ctx, room.ID, member))
	require.NoError(t, w.Approve(ctx, room.ID, member, creator))

	assert.ErrorIs(t, w.Kick(ctx, room.ID, creator, creator), ErrSelfAction)
	assert.ErrorIs(t, w.Kick(ctx, room.ID, member, member), ErrNotCreator)

	require.NoError(t, w.Kick(ctx, room.ID, member, creator))
	got, err := w.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, got.HasParticipant(member))
}

func TestDeleteRoomIdempotent(t *testing.T) {
	w, store, _ := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	require.NoError(t, w.DeleteRoom(ctx, room.ID, creator))
	// 第二次刪除視為成功
	require.NoError(t, w.DeleteRoom(ctx, room.ID, creator))

	got, err := store.FindRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteRoomRequiresCreator(t *testing.T) {
	w, _, _ := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()
	other := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	assert.ErrorIs(t, w.DeleteRoom(ctx, room.ID, other), ErrNotCreator)
}

func TestExpiredRoomIsDeletedOnList(t *testing.T) {
	w, store, _ := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	// 把時鐘撥到預定時間 25 小時之後
	w.SetClock(func() time.Time { return room.ScheduledAt.Add(25 * time.Hour) })

	listed, err := w.ListRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed, "過期房間不得出現在列表")

	// expire-on-read：列表時就從儲存層刪掉了
	got, err := store.FindRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExpiredRoomIsDeletedOnGet(t *testing.T) {
	w, store, _ := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	w.SetClock(func() time.Time { return room.ScheduledAt.Add(25 * time.Hour) })

	_, err = w.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomExpired)

	got, err := store.FindRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// 兩個客戶端先後發現同一個過期房間，後者的刪除也不會出錯
	_, err = w.GetRoom(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRequestNotificationGoesToCreator(t *testing.T) {
	w, _, notifier := newTestWorkflow(t)
	ctx := context.Background()
	creator := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	room, err := w.CreateRoom(ctx, validInput(creator, 4))
	require.NoError(t, err)

	notifier.EXPECT().
		Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n models.Notification) error {
			assert.Equal(t, creator, n.UserID, "申請通知應發給創建者")
			assert.Equal(t, models.NotificationJoinRequested, n.Type)
			assert.Equal(t, room.ID, n.RoomID)
			return nil
		})

	require.NoError(t, w.RequestToJoin(ctx, room.ID, stranger))
}
