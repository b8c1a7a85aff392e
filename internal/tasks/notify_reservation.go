package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// PickupRecorder persists a "book awaiting pickup" notice for a user.
type PickupRecorder interface {
	RecordPickupNotice(userID, bookID uint) error
}

// ReservationReadyTask notifies a user that a book returned by
// someone else is now held for them. Enqueued by the circulation
// service after a reservation is promoted.
type ReservationReadyTask struct {
	UserID uint `json:"user_id"`
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for reservation notices.
func (t ReservationReadyTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reservation_ready",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReservationReadyProcessor creates a processor function for ReservationReadyTask.
func ReservationReadyProcessor(recorder PickupRecorder) backlite.QueueProcessor[ReservationReadyTask] {
	return func(ctx context.Context, task ReservationReadyTask) error {
		if recorder == nil {
			return fmt.Errorf("pickup recorder not configured")
		}

		if err := recorder.RecordPickupNotice(task.UserID, task.BookID); err != nil {
			return fmt.Errorf("record pickup notice: %w", err)
		}

		log.Printf("[TASK] Book %d is ready for pickup by user %d", task.BookID, task.UserID)
		return nil
	}
}

// NewReservationReadyQueue creates a backlite queue for reservation notices.
func NewReservationReadyQueue(recorder PickupRecorder) backlite.Queue {
	return backlite.NewQueue(ReservationReadyProcessor(recorder))
}

// Notifier adapts the task client to the circulation service's
// Notifier interface: promotions become queued tasks.
type Notifier struct {
	client *Client
}

// NewNotifier creates a Notifier backed by the task client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// ReservationReady enqueues a pickup notice. Enqueue failures are
// logged only; the return transaction has already committed.
func (n *Notifier) ReservationReady(userID, bookID uint) {
	op := n.client.Add(ReservationReadyTask{UserID: userID, BookID: bookID})
	if _, err := op.Save(); err != nil {
		log.Printf("Failed to enqueue reservation notice for user %d: %v", userID, err)
	}
}
