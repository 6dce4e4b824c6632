package model

// Notification is a rendered message for one recipient.
type Notification struct {
	Recipient string
	Subject   string
	Content   string
}
