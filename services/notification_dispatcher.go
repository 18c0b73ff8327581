package services

import (
	"context"
	"log"
	"sync"
	"time"

	"skylineAPI/internal/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationDispatcher delivers gated notifications asynchronously through
// a small worker pool so request handlers never wait on FCM.
type NotificationDispatcher struct {
	service      *NotificationService
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *DispatchJob
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

type DispatchJob struct {
	Notification notification.Notification
	Tokens       []notification.DeviceToken
}

func NewNotificationDispatcher(service *NotificationService) *NotificationDispatcher {
	dispatcher := &NotificationDispatcher{
		service:  service,
		workers:  5, // 5 workers is plenty for now
		jobQueue: make(chan *DispatchJob, 100),
		stopChan: make(chan struct{}),
	}

	dispatcher.startWorkers()

	return dispatcher
}

// Allow injecting the real FCM provider from main.go
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	n := job.Notification
	if d.pushProvider == nil {
		log.Printf("Skipping push %s for user %s: no provider configured", n.ID, n.UserID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stamp the notification id into the payload so clients can dedupe
	// redelivered pushes.
	data := map[string]any{"notification_id": n.ID.String()}
	for k, v := range n.Data {
		data[k] = v
	}

	if err := d.pushProvider.SendPush(ctx, job.Tokens, n.Title, n.Message, data); err != nil {
		log.Printf("Push %s failed for user %s: %v", n.ID, n.UserID, err)
		return
	}

	notificationsSent.WithLabelValues(string(n.Type)).Inc()
}

// Dispatch queues a job for the worker pool; a full queue drops the job
// rather than blocking the caller.
func (d *NotificationDispatcher) Dispatch(job *DispatchJob) {
	select {
	case d.jobQueue <- job:
	default:
		log.Printf("Failed to queue notification for user %s: queue full", job.Notification.UserID)
	}
}

// Stop the dispatcher gracefully
func (d *NotificationDispatcher) Stop() {
	log.Println("Stopping notification dispatcher...")
	close(d.stopChan)
	d.wg.Wait()
	log.Println("Notification dispatcher stopped")
}

// MockPushProvider logs instead of calling FCM; used in tests and local runs.
type MockPushProvider struct{}

func (m *MockPushProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	log.Printf("MOCK PUSH: Sending to %d devices: %s - %s", len(tokens), title, body)
	return nil
}
