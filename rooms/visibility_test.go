package rooms

import (
	"testing"
	"time"

	"bira-buddy/backend/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func visibilityTestRoom() (*models.Room, primitive.ObjectID, primitive.ObjectID, primitive.ObjectID) {
	creator := primitive.NewObjectID()
	member := primitive.NewObjectID()
	requester := primitive.NewObjectID()

	room := &models.Room{
		ID:              primitive.NewObjectID(),
		Name:            "週五啤酒夜",
		BarName:         "山丘上的酒吧",
		Neighborhood:    "公館",
		ScheduledAt:     time.Date(2025, 10, 3, 20, 0, 0, 0, time.UTC),
		MaxParticipants: 4,
		CreatorID:       creator,
		Participants: []models.Participant{
			{UserID: creator, Nickname: "創建者"},
			{UserID: member, Nickname: "成員"},
		},
		JoinRequests: []models.JoinRequest{
			{UserID: requester},
		},
	}
	return room, creator, member, requester
}

func TestRoleFor(t *testing.T) {
	room, creator, member, requester := visibilityTestRoom()

	assert.Equal(t, RoleCreator, RoleFor(room, creator))
	assert.Equal(t, RoleParticipant, RoleFor(room, member))
	assert.Equal(t, RolePendingRequester, RoleFor(room, requester))
	assert.Equal(t, RoleStranger, RoleFor(room, primitive.NewObjectID()))
}

func TestViewForCreator(t *testing.T) {
	room, creator, _, _ := visibilityTestRoom()

	v := ViewFor(room, creator, models.RoomStatusUpcoming)
	assert.Equal(t, RoleCreator, v.Role)
	assert.Equal(t, room.BarName, v.BarName, "創建者看得到確切地點")
	assert.Len(t, v.JoinRequests, 1, "申請列表只給創建者")
	assert.True(t, v.CanChat)
	assert.True(t, v.CanManage)
	assert.False(t, v.CanRequestJoin)
}

func TestViewForParticipant(t *testing.T) {
	room, _, member, _ := visibilityTestRoom()

	v := ViewFor(room, member, models.RoomStatusUpcoming)
	assert.Equal(t, RoleParticipant, v.Role)
	assert.Equal(t, room.BarName, v.BarName, "成員看得到確切地點")
	assert.Empty(t, v.JoinRequests, "成員看不到申請列表")
	assert.True(t, v.CanChat)
	assert.False(t, v.CanManage)
}

func TestViewForPendingRequester(t *testing.T) {
	room, _, _, requester := visibilityTestRoom()

	v := ViewFor(room, requester, models.RoomStatusUpcoming)
	assert.Equal(t, RolePendingRequester, v.Role)
	assert.Empty(t, v.BarName, "待批准者只看得到區域")
	assert.Equal(t, room.Neighborhood, v.Neighborhood)
	assert.Empty(t, v.JoinRequests)
	assert.False(t, v.CanChat)
	assert.True(t, v.CanCancelRequest)
	assert.False(t, v.CanRequestJoin)
}

func TestViewForStranger(t *testing.T) {
	room, _, _, _ := visibilityTestRoom()
	stranger := primitive.NewObjectID()

	v := ViewFor(room, stranger, models.RoomStatusUpcoming)
	assert.Equal(t, RoleStranger, v.Role)
	assert.Empty(t, v.BarName, "陌生人只看得到區域")
	assert.Empty(t, v.JoinRequests)
	assert.False(t, v.CanChat)
	assert.True(t, v.CanRequestJoin)
	assert.False(t, v.CanCancelRequest)
}

func TestStrangerCannotRequestFullRoom(t *testing.T) {
	room, _, _, _ := visibilityTestRoom()
	room.MaxParticipants = 2 // 2/2 滿員

	v := ViewFor(room, primitive.NewObjectID(), models.RoomStatusUpcoming)
	assert.False(t, v.CanRequestJoin, "滿員房間不顯示申請按鈕")
}
