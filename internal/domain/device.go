package domain

import "time"

// DeviceType enumerates the kinds of devices a user can log in from
type DeviceType string

const (
	DeviceMobile DeviceType = "mobile"
	DeviceLaptop DeviceType = "laptop"
	DeviceTablet DeviceType = "tablet"
	DeviceOther  DeviceType = "other"
)

// Valid reports whether dt is a known device type
func (dt DeviceType) Valid() bool {
	switch dt {
	case DeviceMobile, DeviceLaptop, DeviceTablet, DeviceOther:
		return true
	}
	return false
}

// DeviceState describes where a device sits in the approval handshake
type DeviceState string

const (
	// DevicePending means the device was seen but not yet approved from a
	// trusted channel; login attempts are parked until approval.
	DevicePending DeviceState = "pending"
	// DeviceApproved means logins from this device mint session tokens directly
	DeviceApproved DeviceState = "approved"
)

// Device is a per-user device identity, unique per (user, device id).
// Created lazily on the first login attempt from an unseen device; starts
// unapproved and transitions to approved only via an explicit remote approval.
type Device struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	DeviceID    string     `json:"device_id" db:"device_id"`
	DeviceType  DeviceType `json:"device_type" db:"device_type"`
	Approved    bool       `json:"approved" db:"approved"`
	LastLoginAt time.Time  `json:"last_login_at" db:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// State maps the approved flag to the handshake state
func (d Device) State() DeviceState {
	if d.Approved {
		return DeviceApproved
	}
	return DevicePending
}
