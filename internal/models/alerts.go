package models

import "time"

// AlertCategory 报警类别
type AlertCategory string

const (
	CategoryMedical    AlertCategory = "MEDICAL"
	CategoryDanger     AlertCategory = "DANGER"
	CategoryFire       AlertCategory = "FIRE"
	CategoryTraffic    AlertCategory = "TRAFFIC"
	CategoryPreventive AlertCategory = "PREVENTIVE"
	CategorySOS        AlertCategory = "SOS"
	Category911        AlertCategory = "EMERGENCY_911"
)

// Valid 是否为已知类别
func (c AlertCategory) Valid() bool {
	switch c {
	case CategoryMedical, CategoryDanger, CategoryFire, CategoryTraffic,
		CategoryPreventive, CategorySOS, Category911:
		return true
	}
	return false
}

// AlertStatus 报警生命周期状态
type AlertStatus string

const (
	StatusCreated    AlertStatus = "CREATED"
	StatusInProgress AlertStatus = "IN_PROGRESS"
	StatusClosed     AlertStatus = "CLOSED"
	StatusCancelled  AlertStatus = "CANCELLED"
)

// PriorityLevel 优先级
type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "high"
	PriorityMedium PriorityLevel = "medium"
	PriorityLow    PriorityLevel = "low"
)

// DefaultPriority 按类别推导优先级
func DefaultPriority(c AlertCategory) PriorityLevel {
	switch c {
	case CategoryPreventive:
		return PriorityLow
	case CategoryTraffic:
		return PriorityMedium
	default:
		return PriorityHigh
	}
}

// Location 报警位置，经纬度必填
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Zero 经纬度均未提供
func (l Location) Zero() bool { return l.Latitude == 0 && l.Longitude == 0 }

// AlertIntent 用户触发报警的意图，调用方构造、提交后即弃
type AlertIntent struct {
	Type     AlertCategory `json:"type"`
	Location Location      `json:"location"`
	GroupID  string        `json:"group_id,omitempty"`
	Details  string        `json:"details,omitempty"`
}

// PendingAlertRecord 离线期间落盘的报警记录
// 只追加进队列，批量同步确认成功后整体清除，失败时整体保留
type PendingAlertRecord struct {
	LocalID          string        `json:"local_id"`
	UserID           string        `json:"user_id"`
	Type             AlertCategory `json:"type"`
	Priority         PriorityLevel `json:"priority"`
	Location         Location      `json:"location"`
	Details          string        `json:"details,omitempty"`
	GroupID          string        `json:"group_id,omitempty"`
	CreatedAtEpochMs int64         `json:"created_at_epoch_ms"`
	EmittedOffline   bool          `json:"emitted_offline"`
}

// SubmittedAlert 提交结果，UI 立即可用
// 离线创建时 ID 即本地ID且 IsOffline 为真；本地ID永不用于取消接口
type SubmittedAlert struct {
	ID          string        `json:"id"`
	Type        AlertCategory `json:"type"`
	Title       string        `json:"title"`
	Location    Location      `json:"location"`
	Status      AlertStatus   `json:"status"`
	Time        time.Time     `json:"time"`
	SenderID    string        `json:"sender_id"`
	IsOffline   bool          `json:"is_offline"`
	IncidentRef string        `json:"incident_ref"`
}

// Alert 服务端返回的报警对象
type Alert struct {
	ID        string        `json:"id"`
	Type      AlertCategory `json:"type"`
	Title     string        `json:"title"`
	Status    AlertStatus   `json:"status"`
	Priority  PriorityLevel `json:"priority"`
	Location  Location      `json:"location"`
	Details   string        `json:"details,omitempty"`
	SenderID  string        `json:"sender_id"`
	CreatedAt time.Time     `json:"created_at"`
}
