package livechannel

import "fmt"

// Message 实时通道消息结构，和后端 socket 网关约定一致
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
	From      string      `json:"from,omitempty"`
	To        string      `json:"to,omitempty"`
	Group     string      `json:"group,omitempty"`
}

// 客户端 → 服务端事件
const (
	EventJoin           = "join"
	EventLeave          = "leave"
	EventUpdateLocation = "updateLocation"
)

// 服务端 → 客户端事件
const (
	EventNewAlert        = "alert:new"
	EventAlertStatus     = "alert:status"
	EventLocationUpdated = "locationUpdated"
	EventGroupMessage    = "group_message"
)

// 房间命名约定
func UserRoom(userID string) string   { return fmt.Sprintf("user_%s", userID) }
func AlertRoom(alertID string) string { return fmt.Sprintf("alert_%s", alertID) }
func GroupRoom(groupID string) string { return fmt.Sprintf("group_%s", groupID) }

// State 连接状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}
