package queue

import "github.com/nikhilbhutani/teamroster/internal/notify"

const (
	TypeInvitationDeliver = "invitation:deliver"
)

type InvitationDeliverPayload struct {
	Invitation notify.Invitation `json:"invitation"`
}
