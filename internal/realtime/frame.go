package realtime

// Frame is what the server writes to clients.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client-invokable actions.
const (
	ActionSendPrivateNotification = "send_private_notification"
	ActionJoinGroup               = "join_group"
	ActionLeaveGroup              = "leave_group"
)

type inboundFrame struct {
	Action     string `json:"action"`
	ReceiverID int64  `json:"receiver_id,omitempty"`
	Message    string `json:"message,omitempty"`
	Group      string `json:"group,omitempty"`
}

type errorData struct {
	Action  string `json:"action,omitempty"`
	Message string `json:"message"`
}
