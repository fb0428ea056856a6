package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"example.com/cloudpanel/internal/messaging"
	"example.com/cloudpanel/internal/models"

	"github.com/sirupsen/logrus"
)

// callbackEnvelope wraps a job callback on the bus. Kind selects the payload
// shape; an empty kind means the body is the generic job-status envelope.
type callbackEnvelope struct {
	Kind    string          `json:"kind,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Envelope kinds on the callback queue
const (
	callbackKindJobStatus       = "job-status"
	callbackKindVolume          = "volume"
	callbackKindNetworkOffering = "network-offering"
	callbackKindVMUpdate        = "vm-update"
)

// JobProcessor drains the platform's callback queue through a worker pool and
// feeds the correlator. One worker handles one callback at a time; a failed
// callback never blocks the processing of other jobs. The pool starts with
// the first Run call, so a process that never drains the queue holds no idle
// workers.
type JobProcessor struct {
	bus        messaging.Client
	correlator AsyncJobService
	log        *logrus.Logger
	queueName  string
	workers    int
	queue      chan messaging.Message
	wg         sync.WaitGroup
	startOnce  sync.Once
	ctx        context.Context
	cancel     context.CancelFunc

	capacityAlertThreshold float64
}

// NewJobProcessor creates a new job processor with a worker pool
func NewJobProcessor(
	bus messaging.Client,
	correlator AsyncJobService,
	log *logrus.Logger,
	queueName string,
	workers, queueSize int,
) *JobProcessor {
	if workers < 4 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 10000
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &JobProcessor{
		bus:        bus,
		correlator: correlator,
		log:        log,
		queueName:  queueName,
		workers:    workers,
		queue:      make(chan messaging.Message, queueSize),
		ctx:        ctx,
		cancel:     cancel,

		capacityAlertThreshold: 0.8,
	}
}

// Run receives callbacks from the bus until ctx is cancelled. The worker
// pool and the capacity monitor start on the first call.
func (jp *JobProcessor) Run(ctx context.Context) error {
	jp.startOnce.Do(func() {
		jp.startWorkers()
		go jp.monitorQueueCapacity()
		jp.log.Infof("Started job processor with %d workers", jp.workers)
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := jp.bus.ReceiveMessages(ctx, jp.queueName, 32)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			jp.log.WithError(err).Error("Failed to receive job callbacks, backing off")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, msg := range messages {
			select {
			case jp.queue <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// startWorkers launches the worker goroutines
func (jp *JobProcessor) startWorkers() {
	for i := 0; i < jp.workers; i++ {
		jp.wg.Add(1)
		go jp.worker(i)
	}
}

// worker processes callbacks from the queue
func (jp *JobProcessor) worker(id int) {
	defer jp.wg.Done()

	for {
		select {
		case <-jp.ctx.Done():
			jp.log.Debugf("Worker %d shutting down", id)
			return
		case msg := <-jp.queue:
			start := time.Now()
			jp.processCallback(msg)
			jp.log.Debugf("Worker %d processed callback in %v", id, time.Since(start))
		}
	}
}

// processCallback decodes one callback and routes it to the correlator.
// Parse and correlation failures settle the message: the source event is not
// re-deliverable by this component, so redelivery would only fail again.
// Transient failures abandon the message for redelivery.
func (jp *JobProcessor) processCallback(msg messaging.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := jp.dispatch(ctx, msg.Body())
	if err == nil {
		if err := msg.Complete(ctx); err != nil {
			jp.log.WithError(err).Warn("Failed to settle processed callback")
		}
		return
	}

	var parseErr *ParseError
	var corrErr *CorrelationError
	if errors.As(err, &parseErr) || errors.As(err, &corrErr) {
		jp.log.WithError(err).Error("Dropping unprocessable job callback")
		if err := msg.Complete(ctx); err != nil {
			jp.log.WithError(err).Warn("Failed to settle unprocessable callback")
		}
		return
	}

	jp.log.WithError(err).Error("Failed to process job callback, releasing for redelivery")
	if err := msg.Abandon(ctx); err != nil {
		jp.log.WithError(err).Warn("Failed to abandon callback")
	}
}

// dispatch decodes the envelope and invokes the matching correlator entry
func (jp *JobProcessor) dispatch(ctx context.Context, body []byte) error {
	var envelope callbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &ParseError{Reason: "invalid callback JSON"}
	}

	// Bare envelopes carry the generic payload directly
	raw := envelope.Payload
	if envelope.Kind == "" {
		envelope.Kind = callbackKindJobStatus
		raw = body
	}

	switch envelope.Kind {
	case callbackKindJobStatus:
		var payload models.JobStatusPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return &ParseError{Reason: "invalid job-status payload"}
		}
		return jp.correlator.SyncResourceStatus(ctx, &payload)

	case callbackKindVolume:
		var resp models.VolumeResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return &ParseError{Reason: "invalid volume payload"}
		}
		return jp.correlator.AsyncVolume(ctx, &resp)

	case callbackKindNetworkOffering:
		var resp models.NetworkOfferingResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return &ParseError{Reason: "invalid network-offering payload"}
		}
		return jp.correlator.AsyncNetworkOffering(ctx, &resp)

	case callbackKindVMUpdate:
		var notice struct {
			InstanceUUID string `json:"instanceUuid"`
		}
		if err := json.Unmarshal(raw, &notice); err != nil {
			return &ParseError{Reason: "invalid vm-update payload"}
		}
		return jp.correlator.SyncVMUpdate(ctx, notice.InstanceUUID)
	}

	return &ParseError{Reason: "unknown callback kind " + envelope.Kind}
}

// monitorQueueCapacity logs a warning when the in-memory queue approaches
// capacity
func (jp *JobProcessor) monitorQueueCapacity() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-jp.ctx.Done():
			return
		case <-ticker.C:
			queueLength := len(jp.queue)
			queueCapacity := cap(jp.queue)
			usage := float64(queueLength) / float64(queueCapacity)

			if usage >= jp.capacityAlertThreshold {
				jp.log.Warnf("Callback queue at %d%% capacity (%d/%d)", int(usage*100), queueLength, queueCapacity)
			}
		}
	}
}

// QueueStats returns statistics about the processor queue
func (jp *JobProcessor) QueueStats() map[string]interface{} {
	return map[string]interface{}{
		"queue_length":   len(jp.queue),
		"queue_capacity": cap(jp.queue),
		"workers":        jp.workers,
	}
}

// Stop drains the workers and stops the processor
func (jp *JobProcessor) Stop() {
	jp.cancel()
	jp.wg.Wait()
}
