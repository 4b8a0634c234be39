package rooms

import (
	"errors"
	"fmt"
)

// 工作流程層的前置條件錯誤，直接回報給使用者，不做重試
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomExpired        = errors.New("room has expired")
	ErrRoomFull           = errors.New("room is full")
	ErrAlreadyParticipant = errors.New("user is already a participant")
	ErrAlreadyRequested   = errors.New("user already has a pending request")
	ErrRequestNotFound    = errors.New("join request not found")
	ErrNotParticipant     = errors.New("user is not a participant")
	ErrNotCreator         = errors.New("only the room creator can do this")
	ErrSelfAction         = errors.New("cannot perform this action on yourself")
	ErrCreatorCannotLeave = errors.New("creator cannot leave the room, delete it instead")
)

// ValidationError 代表輸入欄位的格式或範圍錯誤，在任何遠端呼叫之前就被擋下
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation 判斷錯誤是否為輸入驗證錯誤
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
