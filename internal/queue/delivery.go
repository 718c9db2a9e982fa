package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DeliveryLog appends delivered SMS messages to <Dir>/otp.log. It stands in
// for a real SMS gateway.
type DeliveryLog struct {
	Dir string

	mu sync.Mutex
}

// NewDeliveryLog returns a log writing into dir ("logs" when empty).
func NewDeliveryLog(dir string) *DeliveryLog {
	if dir == "" {
		dir = "logs"
	}
	return &DeliveryLog{Dir: dir}
}

// Path is the file messages are appended to.
func (d *DeliveryLog) Path() string { return filepath.Join(d.Dir, "otp.log") }

// Deliver appends one line for ev.
func (d *DeliveryLog) Deliver(ev OTPRequestedEvent) error {
	if ev.Phone == "" || ev.Code == "" {
		return fmt.Errorf("incomplete otp event %q", ev.EventID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(d.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | user_id=%d | event_id=%s\n", ev.IssuedAt, ev.SMSText(), ev.UserID, ev.EventID)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
