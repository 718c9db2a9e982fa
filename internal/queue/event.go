// Package queue defines message payloads exchanged over the message broker
// and the background consumer that delivers them.
package queue

import "fmt"

// OTPQueueName is the durable queue carrying password reset codes.
const OTPQueueName = "otp.requested"

// OTPRequestedEvent is published when a user asks for a password reset code.
// The consumer hands it to the SMS gateway stand-in.
type OTPRequestedEvent struct {
	EventID  string `json:"event_id"`
	Phone    string `json:"phone"`
	Code     string `json:"code"`
	UserID   uint64 `json:"user_id"`
	IssuedAt string `json:"issued_at"` // RFC3339, UTC
}

// SMSText is the message delivered to the phone.
func (e OTPRequestedEvent) SMSText() string {
	return fmt.Sprintf("SMS to %s: Your OTP is %s", e.Phone, e.Code)
}
