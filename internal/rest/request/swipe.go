package request

import "github.com/Guyuepp/likers-match/domain"

type Swipe struct {
	ToUserID string `json:"to_user_id" binding:"required"`
	Action   string `json:"action" binding:"required,oneof=like pass superlike"`
}

func (r *Swipe) ActionValue() domain.Action {
	return domain.Action(r.Action)
}
