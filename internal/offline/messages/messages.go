// Package messages defines the asynchronous messages exchanged between the
// offline layer and the application, and publishes them on the event bus
// with the message type as routing key.
package messages

import (
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

// Outbound message types.
const (
	TypeRequestQueued       = "REQUEST_QUEUED"
	TypeSyncComplete        = "SYNC_COMPLETE"
	TypeOfflineSyncComplete = "offline-sync-complete"
	TypeQueueToIndexedDB    = "QUEUE_TO_INDEXEDDB"
	TypeShowToast           = "show-toast"
	TypeShowNotification    = "show-notification"
	TypeSyncStatus          = "SYNC_STATUS"
)

// Inbound command types sent by the application.
const (
	TypeGetSyncStatus              = "GET_SYNC_STATUS"
	TypeForceSync                  = "FORCE_SYNC"
	TypeCheckNotification          = "CHECK_NOTIFICATION"
	TypeUpdateNotificationSettings = "UPDATE_NOTIFICATION_SETTINGS"
	TypeCancelNotifications        = "CANCEL_NOTIFICATIONS"
	TypeUpdateVacations            = "UPDATE_VACATIONS"
	TypeScheduleNotifications      = "SCHEDULE_NOTIFICATIONS"
	TypeSkipWaiting                = "SKIP_WAITING"
)

// Toast severities.
const (
	ToastSuccess = "success"
	ToastInfo    = "info"
	ToastWarning = "warning"
	ToastError   = "error"
)

// RequestQueued reports that a mutation could not be delivered and was queued.
type RequestQueued struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	ID     int64  `json:"id,omitempty"`
}

// SyncComplete reports one successfully replayed record.
type SyncComplete struct {
	URL string `json:"url"`
	ID  int64  `json:"id,omitempty"`
}

// OfflineSyncComplete summarises a drain pass.
type OfflineSyncComplete struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// QueueToIndexedDB asks the application-side queue to persist a request the
// interceptor could not store itself.
type QueueToIndexedDB struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Body      []byte            `json:"body,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// UpdateNotificationSettings carries new reminder settings.
type UpdateNotificationSettings struct {
	Settings domain.NotificationSettings `json:"settings"`
}

// UpdateVacations replaces the vacation windows.
type UpdateVacations struct {
	Vacations []domain.VacationWindow `json:"vacations"`
}

// ShowToast is a user-visible status line.
type ShowToast struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ShowNotification asks the application to display a system notification.
type ShowNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
	Date  string `json:"date"`
}

// SyncStatus answers GET_SYNC_STATUS. Supported is true when the
// interceptor stores mutations itself instead of relaying them.
type SyncStatus struct {
	Supported bool `json:"supported"`
	Pending   int  `json:"pending"`
}
