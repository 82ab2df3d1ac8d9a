package worker

import (
	"github.com/spec-kit/fieldconnect/internal/service"
)

// StartNotificationWorker registers the email handlers on the dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
