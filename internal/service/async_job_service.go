package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"example.com/cloudpanel/internal/cloudstack"
	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AsyncJobService is the job correlator: it translates raw job-status
// payloads from the orchestration platform into domain resource updates and
// event ledger entries, then hands persisted events to the fan-out
// dispatcher. Calls share no mutable state beyond the data store, so jobs
// for different job ids are processed concurrently without ordering
// guarantees; the ledger serializes writes for a single job id.
type AsyncJobService interface {
	SyncResourceStatus(ctx context.Context, payload *models.JobStatusPayload) error
	SyncVMUpdate(ctx context.Context, instanceUUID string) error
	AsyncNetworkOffering(ctx context.Context, resp *models.NetworkOfferingResponse) error
	AsyncVolume(ctx context.Context, resp *models.VolumeResponse) error
}

// asyncJobService implements AsyncJobService
type asyncJobService struct {
	repo      repository.Repository
	events    EventNotificationService
	websocket WebsocketService
	quota     QuotaService
	email     EmailJobService
	platform  cloudstack.Client
	log       *logrus.Logger
}

// NewAsyncJobService creates a new job correlator
func NewAsyncJobService(
	repo repository.Repository,
	events EventNotificationService,
	websocket WebsocketService,
	quota QuotaService,
	email EmailJobService,
	platform cloudstack.Client,
	log *logrus.Logger,
) AsyncJobService {
	return &asyncJobService{
		repo:      repo,
		events:    events,
		websocket: websocket,
		quota:     quota,
		email:     email,
		platform:  platform,
		log:       log,
	}
}

// SyncResourceStatus consumes the generic job-status envelope for any tracked
// resource. It resolves the local entity by the platform type tag and
// external id, moves its state, and records the ledger entry. Redelivery of
// an already-terminal job id is a no-op.
func (s *asyncJobService) SyncResourceStatus(ctx context.Context, payload *models.JobStatusPayload) error {
	if payload == nil {
		return &ParseError{Reason: "empty payload"}
	}
	if payload.JobID == "" {
		return &ParseError{Reason: "missing jobId"}
	}

	status := payload.JobStatus.EventStatus()

	if status.IsTerminal() {
		if _, err := s.repo.Events().FindTerminalByJobID(ctx, payload.JobID); err == nil {
			s.log.WithField("job_id", payload.JobID).Debug("Terminal event already recorded, skipping redelivery")
			return nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check terminal event for job %s: %w", payload.JobID, err)
		}
	}

	if payload.ResourceUUID != "" {
		state, ok := resourceStateFor(payload.ResourceType, payload.EventName, status)
		if ok {
			err := s.repo.Resources().UpdateStateByTypeAndUUID(ctx, payload.ResourceType, payload.ResourceUUID, state)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return &CorrelationError{
						ResourceType: payload.ResourceType,
						ResourceUUID: payload.ResourceUUID,
						Err:          err,
					}
				}
				return fmt.Errorf("failed to update %s %s: %w", payload.ResourceType, payload.ResourceUUID, err)
			}
		}
	}

	event := &models.Event{
		UUID:         uuid.New().String(),
		EventName:    payload.EventName,
		EventType:    models.EventTypeAsync,
		Status:       status,
		JobID:        payload.JobID,
		ResourceUUID: payload.ResourceUUID,
		ResourceType: payload.ResourceType,
		EventOwnerID: payload.OwnerID,
		Message:      payload.Message,
	}

	return s.recordAndDispatch(ctx, event)
}

// SyncVMUpdate refreshes one VM's state from the platform. Repeated calls
// with the same uuid converge to the same state.
func (s *asyncJobService) SyncVMUpdate(ctx context.Context, instanceUUID string) error {
	if instanceUUID == "" {
		return &ParseError{Reason: "missing instance uuid"}
	}

	vm, err := s.repo.Resources().FindVMByUUID(ctx, instanceUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &CorrelationError{ResourceType: "VM", ResourceUUID: instanceUUID, Err: err}
		}
		return err
	}

	state, err := s.platform.GetVirtualMachineState(ctx, instanceUUID)
	if err != nil {
		return fmt.Errorf("failed to fetch VM %s from platform: %w", instanceUUID, err)
	}

	if vm.State == state {
		return nil
	}

	vm.State = state
	if err := s.repo.Resources().UpdateVM(ctx, vm); err != nil {
		return fmt.Errorf("failed to update VM %s: %w", instanceUUID, err)
	}

	s.log.WithFields(logrus.Fields{
		"instance_uuid": instanceUUID,
		"state":         state,
	}).Info("VM state refreshed from platform")
	return nil
}

// AsyncNetworkOffering handles the completion payload of network offering
// provisioning jobs
func (s *asyncJobService) AsyncNetworkOffering(ctx context.Context, resp *models.NetworkOfferingResponse) error {
	if resp == nil || resp.JobID == "" {
		return &ParseError{Reason: "missing jobId in network offering response"}
	}
	if resp.OfferingUUID == "" {
		return &ParseError{Reason: "missing networkOfferingUuid"}
	}

	if done, err := s.terminalAlreadyRecorded(ctx, resp.JobID); err != nil {
		return err
	} else if done {
		return nil
	}

	offering, err := s.repo.Resources().FindNetworkOfferingByUUID(ctx, resp.OfferingUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &CorrelationError{ResourceType: "NetworkOffering", ResourceUUID: resp.OfferingUUID, Err: err}
		}
		return err
	}

	status := resp.JobStatus.EventStatus()
	message := fmt.Sprintf("Network offering %s is ready", offering.Name)
	if status == models.EventStatusFailed {
		offering.State = models.ResourceStateFailed
		message = resp.ErrorText
	} else {
		offering.State = models.ResourceStateReady
	}

	if err := s.repo.Resources().UpdateNetworkOffering(ctx, offering); err != nil {
		return fmt.Errorf("failed to update network offering %s: %w", resp.OfferingUUID, err)
	}

	event := &models.Event{
		UUID:         uuid.New().String(),
		EventName:    "networkoffering.create",
		EventType:    models.EventTypeAsync,
		Status:       status,
		JobID:        resp.JobID,
		ResourceUUID: resp.OfferingUUID,
		ResourceType: "NetworkOffering",
		EventOwnerID: resp.OwnerID,
		Message:      message,
	}

	return s.recordAndDispatch(ctx, event)
}

// AsyncVolume handles the completion payload of volume provisioning jobs
func (s *asyncJobService) AsyncVolume(ctx context.Context, resp *models.VolumeResponse) error {
	if resp == nil || resp.JobID == "" {
		return &ParseError{Reason: "missing jobId in volume response"}
	}
	if resp.VolumeUUID == "" {
		return &ParseError{Reason: "missing volumeUuid"}
	}

	if done, err := s.terminalAlreadyRecorded(ctx, resp.JobID); err != nil {
		return err
	} else if done {
		return nil
	}

	volume, err := s.repo.Resources().FindVolumeByUUID(ctx, resp.VolumeUUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &CorrelationError{ResourceType: "Volume", ResourceUUID: resp.VolumeUUID, Err: err}
		}
		return err
	}

	status := resp.JobStatus.EventStatus()
	message := fmt.Sprintf("Volume %s is ready", volume.Name)
	if status == models.EventStatusFailed {
		volume.State = models.ResourceStateFailed
		message = resp.ErrorText
	} else {
		volume.State = models.ResourceStateReady
		if resp.SizeGB > 0 {
			volume.SizeGB = resp.SizeGB
		}
	}

	if err := s.repo.Resources().UpdateVolume(ctx, volume); err != nil {
		return fmt.Errorf("failed to update volume %s: %w", resp.VolumeUUID, err)
	}

	event := &models.Event{
		UUID:         uuid.New().String(),
		EventName:    "volume.create",
		EventType:    models.EventTypeAsync,
		Status:       status,
		JobID:        resp.JobID,
		ResourceUUID: resp.VolumeUUID,
		ResourceType: "Volume",
		EventOwnerID: resp.OwnerID,
		Message:      message,
	}

	return s.recordAndDispatch(ctx, event)
}

// terminalAlreadyRecorded reports whether a terminal event exists for the job
func (s *asyncJobService) terminalAlreadyRecorded(ctx context.Context, jobID string) (bool, error) {
	_, err := s.repo.Events().FindTerminalByJobID(ctx, jobID)
	if err == nil {
		s.log.WithField("job_id", jobID).Debug("Terminal event already recorded, skipping redelivery")
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check terminal event for job %s: %w", jobID, err)
}

// recordAndDispatch persists the event and, only after durable persistence,
// fans it out and applies terminal side effects. The terminal ledger write
// and the resource count adjustment commit in one transaction, so a failed
// adjustment rolls the terminal row back and redelivery retries both. A
// duplicate terminal write resolves to a no-op with no publish, so
// concurrent deliveries of the same job status produce exactly one stored
// row and one publish.
func (s *asyncJobService) recordAndDispatch(ctx context.Context, event *models.Event) error {
	event.IsActive = true
	event.IsArchive = false

	if event.Status.IsTerminal() {
		update, countable := s.terminalCountUpdate(ctx, event)

		var newCount int64
		err := s.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
			if err := txRepo.Events().CreateTerminal(ctx, event); err != nil {
				return err
			}
			if countable {
				n, err := s.quota.UpdateCount(ctx, txRepo, update.departmentID, update.kind, update.action)
				if err != nil {
					return err
				}
				newCount = n
			}
			return nil
		})
		if errors.Is(err, repository.ErrDuplicateTerminalEvent) {
			s.log.WithField("job_id", event.JobID).Debug("Lost terminal event race, skipping")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to record terminal event for job %s: %w", event.JobID, err)
		}

		if countable {
			s.quota.MirrorCount(ctx, update.departmentID, update.kind, newCount)
		}
		if err := s.email.EnqueueTerminalNotice(ctx, event); err != nil {
			s.log.WithError(err).WithField("event_uuid", event.UUID).Error("Failed to enqueue email notice")
		}
	} else {
		if err := s.repo.Events().Save(ctx, event); err != nil {
			return fmt.Errorf("failed to record event for job %s: %w", event.JobID, err)
		}
	}

	// The dispatcher suppresses non-terminal async events itself
	s.websocket.HandleEventAction(ctx, event)
	return nil
}

// countUpdate identifies one pending resource count adjustment
type countUpdate struct {
	departmentID uint
	kind         models.ResourceKind
	action       CountAction
}

// terminalCountUpdate resolves whether a terminal event moves a resource
// count, and for which department. Only successful outcomes move counts; a
// failed create provisioned nothing and a failed delete removed nothing.
func (s *asyncJobService) terminalCountUpdate(ctx context.Context, event *models.Event) (countUpdate, bool) {
	if event.Status != models.EventStatusSucceeded {
		return countUpdate{}, false
	}
	kind, ok := models.ResourceKindForType(event.ResourceType)
	if !ok {
		return countUpdate{}, false
	}
	action, ok := countActionForEvent(event.EventName)
	if !ok {
		return countUpdate{}, false
	}
	departmentID, ok := s.departmentForResource(ctx, event.ResourceType, event.ResourceUUID)
	if !ok {
		return countUpdate{}, false
	}
	return countUpdate{departmentID: departmentID, kind: kind, action: action}, true
}

// departmentForResource resolves the owning department of a countable
// resource so the count adjustment lands on the right tenant
func (s *asyncJobService) departmentForResource(ctx context.Context, resourceType, resourceUUID string) (uint, bool) {
	if resourceUUID == "" {
		return 0, false
	}

	var (
		deptID uint
		err    error
	)
	switch resourceType {
	case "VM", "VirtualMachine":
		var vm *models.VMInstance
		if vm, err = s.repo.Resources().FindVMByUUID(ctx, resourceUUID); err == nil {
			deptID = vm.DepartmentID
		}
	case "Volume":
		var volume *models.Volume
		if volume, err = s.repo.Resources().FindVolumeByUUID(ctx, resourceUUID); err == nil {
			deptID = volume.DepartmentID
		}
	case "Network":
		var network *models.Network
		if network, err = s.repo.Resources().FindNetworkByUUID(ctx, resourceUUID); err == nil {
			deptID = network.DepartmentID
		}
	case "IpAddress", "PublicIpAddress":
		var ip *models.IPAddress
		if ip, err = s.repo.Resources().FindIPAddressByUUID(ctx, resourceUUID); err == nil {
			deptID = ip.DepartmentID
		}
	case "Snapshot":
		var snapshot *models.Snapshot
		if snapshot, err = s.repo.Resources().FindSnapshotByUUID(ctx, resourceUUID); err == nil {
			deptID = snapshot.DepartmentID
		}
	default:
		return 0, false
	}

	if err != nil {
		s.log.WithError(err).Warnf("Could not resolve department for %s %s", resourceType, resourceUUID)
		return 0, false
	}
	return deptID, deptID > 0
}

// countActionForEvent classifies an event name as a count-affecting create
// or delete action. Non-count actions (start, stop, attach...) report false.
func countActionForEvent(eventName string) (CountAction, bool) {
	name := strings.ToLower(eventName)
	switch {
	case strings.HasSuffix(name, ".create"), strings.HasSuffix(name, ".acquire"):
		return CountActionCreate, true
	case strings.HasSuffix(name, ".delete"), strings.HasSuffix(name, ".destroy"),
		strings.HasSuffix(name, ".expunge"), strings.HasSuffix(name, ".release"):
		return CountActionDelete, true
	}
	return "", false
}

// resourceStateFor derives the target resource state for a job outcome. The
// second return is false when the ledger entry should not touch the resource
// (non-terminal updates keep the platform's in-progress state local to the
// job, not the entity).
func resourceStateFor(resourceType, eventName string, status models.EventStatus) (models.ResourceState, bool) {
	switch status {
	case models.EventStatusFailed:
		return models.ResourceStateFailed, true
	case models.EventStatusSucceeded:
		if action, ok := countActionForEvent(eventName); ok && action == CountActionDelete {
			return models.ResourceStateDestroyed, true
		}
		switch resourceType {
		case "VM", "VirtualMachine":
			if strings.HasSuffix(strings.ToLower(eventName), ".stop") {
				return models.ResourceStateStopped, true
			}
			return models.ResourceStateRunning, true
		default:
			return models.ResourceStateReady, true
		}
	default:
		return "", false
	}
}
