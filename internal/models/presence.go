package models

import "time"

type Preference string

const (
	PreferenceAuto          Preference = "auto"
	PreferenceAlwaysOnline  Preference = "always_online"
	PreferenceAlwaysOffline Preference = "always_offline"
	PreferenceManual        Preference = "manual"
)

func (p Preference) Valid() bool {
	switch p {
	case PreferenceAuto, PreferenceAlwaysOnline, PreferenceAlwaysOffline, PreferenceManual:
		return true
	}
	return false
}

type DeviceType string

const (
	DeviceWeb     DeviceType = "web"
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
)

type NotificationCategory string

const (
	CategoryChat      NotificationCategory = "chat"
	CategoryOrders    NotificationCategory = "orders"
	CategoryMarketing NotificationCategory = "marketing"
)

func (c NotificationCategory) Valid() bool {
	switch c {
	case CategoryChat, CategoryOrders, CategoryMarketing:
		return true
	}
	return false
}

// NotificationPrefs holds the per-category push opt-ins stored with the
// presence row.
type NotificationPrefs struct {
	Chat      bool
	Orders    bool
	Marketing bool
}

func (n NotificationPrefs) Enabled(category NotificationCategory) bool {
	switch category {
	case CategoryChat:
		return n.Chat
	case CategoryOrders:
		return n.Orders
	case CategoryMarketing:
		return n.Marketing
	}
	return false
}

// UserPresence is the persisted presence row for a user. IsOnline is the raw
// stored flag; callers wanting the derived state go through the resolver.
type UserPresence struct {
	UserID            string
	IsOnline          bool
	LastSeen          time.Time
	Preference        Preference
	NotificationPrefs NotificationPrefs
	UpdatedAt         time.Time
}

// PresenceUpdate is a partial update: nil fields leave the stored value
// unchanged.
type PresenceUpdate struct {
	IsOnline          *bool
	LastSeen          *time.Time
	Preference        *Preference
	NotificationPrefs *NotificationPrefs
}
