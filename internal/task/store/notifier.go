package store

import "worksync-backend/pkg/apperror"

// EventSender pushes a named event to every open stream of a user.
type EventSender interface {
	SendToUser(userID, event string, data interface{})
}

// ToastEvent is the payload of the "toast" event sent for failed writes.
type ToastEvent struct {
	Kind    apperror.Kind `json:"kind"`
	Op      string        `json:"op"`
	Message string        `json:"message"`
}

type sseNotifier struct {
	sender EventSender
}

// NewSSENotifier reports write failures to the user as "toast" events.
func NewSSENotifier(sender EventSender) Notifier {
	return &sseNotifier{sender: sender}
}

func (n *sseNotifier) NotifyError(userID string, err *apperror.Error) {
	n.sender.SendToUser(userID, "toast", ToastEvent{
		Kind:    err.Kind,
		Op:      err.Op,
		Message: toastMessage(err.Kind),
	})
}

func toastMessage(kind apperror.Kind) string {
	switch kind {
	case apperror.KindPermissionDenied:
		return "You do not have permission to change this task."
	case apperror.KindNetwork:
		return "Could not reach the server. Your change was not saved."
	case apperror.KindNotFound:
		return "This task no longer exists."
	case apperror.KindInvalid:
		return "The task could not be saved because it is invalid."
	default:
		return "Something went wrong while saving your change."
	}
}
