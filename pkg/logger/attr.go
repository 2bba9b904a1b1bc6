package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// ItemID records the inventory item identifier under the key "item_id".
// If id is nil, it returns an empty Attr.
func ItemID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("item_id", id)
}

// LocationID records the location identifier under the key "location_id".
// If id is nil, it returns an empty Attr.
func LocationID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("location_id", id)
}

// NotificationID records the notification identifier under the key "notification_id".
// If id is nil, it returns an empty Attr.
func NotificationID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("notification_id", id)
}

// RuleID records the alert rule identifier under the key "rule_id".
// If id is nil, it returns an empty Attr.
func RuleID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("rule_id", id)
}

// Channel records a delivery channel name under the key "channel".
func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

// Task records a scheduled task name under the key "task".
func Task(name string) slog.Attr {
	return slog.String("task", name)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
