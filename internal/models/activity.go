package models

import "time"

type ActivityType string

const (
	ActivityLogin       ActivityType = "login"
	ActivityLogout      ActivityType = "logout"
	ActivityPageView    ActivityType = "page_view"
	ActivityChatMessage ActivityType = "chat_message"
	ActivityProductView ActivityType = "product_view"
	ActivityHeartbeat   ActivityType = "heartbeat"
)

func (a ActivityType) Valid() bool {
	switch a {
	case ActivityLogin, ActivityLogout, ActivityPageView, ActivityChatMessage, ActivityProductView, ActivityHeartbeat:
		return true
	}
	return false
}

// ActivityMetadata carries the optional per-type detail of an event. Only the
// fields relevant to the event's type are set; the rest stay zero.
type ActivityMetadata struct {
	Page      string
	ProductID string
	ChatID    string
	Device    DeviceType
}

func (m ActivityMetadata) IsZero() bool {
	return m == ActivityMetadata{}
}

type ActivityEvent struct {
	ID           string
	UserID       string
	ActivityType ActivityType
	Timestamp    time.Time
	Metadata     ActivityMetadata
}

// PushDecision is the result of a push-eligibility check. Constructed fresh
// per query, never stored.
type PushDecision struct {
	ShouldSendPush   bool
	Reason           PushReason
	Confidence       Confidence
	LastActivity     string
	ConnectionStatus ConnectionStatus
	ViewportStatus   ViewportStatus
}

type PushReason string

const (
	ReasonConnected          PushReason = "connected"
	ReasonRecentActivity     PushReason = "recent_activity"
	ReasonPreferenceOverride PushReason = "preference_override"
	ReasonOffline            PushReason = "offline"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type ConnectionStatus string

const (
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionAway         ConnectionStatus = "away"
)

type ViewportStatus string

const (
	ViewportVisible ViewportStatus = "visible"
	ViewportHidden  ViewportStatus = "hidden"
	ViewportUnknown ViewportStatus = "unknown"
)
