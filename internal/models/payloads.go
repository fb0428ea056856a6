package models

// JobStatus is an enum for the job state reported by the orchestration platform
type JobStatus string

const (
	// JobStatusPending represents a queued job
	JobStatusPending JobStatus = "PENDING"
	// JobStatusInProgress represents a running job
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	// JobStatusSucceeded represents a successfully completed job
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	// JobStatusFailed represents a failed job
	JobStatusFailed JobStatus = "FAILED"
)

// EventStatus maps the platform job state onto the event ledger status
func (s JobStatus) EventStatus() EventStatus {
	switch s {
	case JobStatusSucceeded:
		return EventStatusSucceeded
	case JobStatusFailed:
		return EventStatusFailed
	case JobStatusInProgress:
		return EventStatusInProgress
	default:
		return EventStatusCreated
	}
}

// JobStatusPayload is the generic async-job response envelope delivered by the
// orchestration platform, either over the callback queue or the webhook.
// Unknown additional fields are tolerated and dropped on decode.
type JobStatusPayload struct {
	JobID        string            `json:"jobId"`
	JobStatus    JobStatus         `json:"jobStatus"`
	EventName    string            `json:"commandEventType"`
	ResourceUUID string            `json:"resourceUuid,omitempty"`
	ResourceType string            `json:"resourceType,omitempty"`
	OwnerID      *uint             `json:"ownerId,omitempty"`
	Message      string            `json:"message,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// NetworkOfferingResponse is the completion payload for network offering
// provisioning jobs, whose shape differs from the generic envelope.
type NetworkOfferingResponse struct {
	JobID        string    `json:"jobId"`
	JobStatus    JobStatus `json:"jobStatus"`
	OfferingUUID string    `json:"networkOfferingUuid"`
	Name         string    `json:"name"`
	OwnerID      *uint     `json:"ownerId,omitempty"`
	ErrorText    string    `json:"errorText,omitempty"`
}

// VolumeResponse is the completion payload for volume provisioning jobs.
type VolumeResponse struct {
	JobID      string    `json:"jobId"`
	JobStatus  JobStatus `json:"jobStatus"`
	VolumeUUID string    `json:"volumeUuid"`
	Name       string    `json:"name"`
	SizeGB     uint64    `json:"sizeGb"`
	OwnerID    *uint     `json:"ownerId,omitempty"`
	ErrorText  string    `json:"errorText,omitempty"`
}

// Caller carries the identity of the user performing an action. It travels as
// an explicit parameter into the pipeline instead of being read from ambient
// request-scoped state.
type Caller struct {
	UserID       uint   `json:"user_id"`
	Role         string `json:"role"`
	DepartmentID uint   `json:"department_id"`
}

// ResourceKind enumerates the closed set of countable resource kinds subject
// to quota checks and resource-count reconciliation.
type ResourceKind string

const (
	// ResourceKindVM counts virtual machine instances
	ResourceKindVM ResourceKind = "vm"
	// ResourceKindVolume counts storage volumes
	ResourceKindVolume ResourceKind = "volume"
	// ResourceKindNetwork counts guest networks
	ResourceKindNetwork ResourceKind = "network"
	// ResourceKindIP counts public IP addresses
	ResourceKindIP ResourceKind = "ip"
	// ResourceKindSnapshot counts volume snapshots
	ResourceKindSnapshot ResourceKind = "snapshot"
)

// Valid reports whether the kind is one of the countable resource kinds
func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceKindVM, ResourceKindVolume, ResourceKindNetwork, ResourceKindIP, ResourceKindSnapshot:
		return true
	}
	return false
}

// ResourceKindForType maps a platform resource type tag onto a countable
// kind. The second return is false for resource types that do not affect
// quota counts.
func ResourceKindForType(resourceType string) (ResourceKind, bool) {
	switch resourceType {
	case "VM", "VirtualMachine":
		return ResourceKindVM, true
	case "Volume":
		return ResourceKindVolume, true
	case "Network":
		return ResourceKindNetwork, true
	case "IpAddress", "PublicIpAddress":
		return ResourceKindIP, true
	case "Snapshot":
		return ResourceKindSnapshot, true
	}
	return "", false
}
