package model

// Settings are runtime toggles handed to the components that read them.
type Settings struct {
	MaintenanceMode       bool `mapstructure:"maintenance_mode" json:"maintenance_mode"`
	EmailNotifications    bool `mapstructure:"email_notifications" json:"email_notifications"`
	MaxAdvanceBookingDays int  `mapstructure:"max_advance_booking_days" json:"max_advance_booking_days"`
}
