package models

import (
	"time"

	"gorm.io/gorm"
)

// Model is the base model with common fields for all database entities
type Model struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// EventType is an enum for the origin of an event
type EventType string

const (
	// EventTypeAction represents a user-initiated UI action
	EventTypeAction EventType = "ACTION"
	// EventTypeAsync represents a long-running job tracked by a job id
	EventTypeAsync EventType = "ASYNC"
	// EventTypeAlert represents a system-generated alert with no specific owner
	EventTypeAlert EventType = "ALERT"
)

// EventStatus is an enum for the lifecycle state of an event
type EventStatus string

const (
	// EventStatusCreated represents a newly recorded event
	EventStatusCreated EventStatus = "CREATED"
	// EventStatusInProgress represents an event whose job is still running
	EventStatusInProgress EventStatus = "INPROGRESS"
	// EventStatusSucceeded represents a terminally successful event
	EventStatusSucceeded EventStatus = "SUCCEEDED"
	// EventStatusFailed represents a terminally failed event
	EventStatusFailed EventStatus = "FAILED"
)

// IsTerminal reports whether the status is a terminal state. Once an event
// reaches a terminal state no further status update for the same job id is
// accepted.
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusSucceeded || s == EventStatusFailed
}

// Event is the notification ledger entry: who triggered what against which
// resource, correlated to the orchestration platform's job id when the
// underlying action is asynchronous.
type Event struct {
	Model
	UUID         string      `json:"uuid" gorm:"uniqueIndex;Column:uuid"`
	EventName    string      `json:"event" gorm:"Column:event_name;index"`
	EventType    EventType   `json:"event_type" gorm:"Column:event_type;index"`
	Status       EventStatus `json:"status" gorm:"Column:status;index"`
	JobID        string      `json:"job_id" gorm:"Column:job_id;index"`
	ResourceUUID string      `json:"resource_uuid" gorm:"Column:resource_uuid;index"`
	ResourceType string      `json:"resource_type" gorm:"Column:resource_type"`
	EventOwnerID *uint       `json:"event_owner_id" gorm:"Column:event_owner_id;index"`
	Message      string      `json:"message" gorm:"Column:message;type:text"`
	IsActive     bool        `json:"is_active" gorm:"Column:is_active;index"`
	IsArchive    bool        `json:"is_archive" gorm:"Column:is_archive;index"`
}

// ResourceState is an enum for the provisioning state of a domain resource
type ResourceState string

const (
	// ResourceStateCreating represents a resource being provisioned
	ResourceStateCreating ResourceState = "Creating"
	// ResourceStateRunning represents a running compute resource
	ResourceStateRunning ResourceState = "Running"
	// ResourceStateStopped represents a stopped compute resource
	ResourceStateStopped ResourceState = "Stopped"
	// ResourceStateReady represents a provisioned, usable resource
	ResourceStateReady ResourceState = "Ready"
	// ResourceStateFailed represents a resource whose provisioning failed
	ResourceStateFailed ResourceState = "Failed"
	// ResourceStateDestroyed represents a deleted resource
	ResourceStateDestroyed ResourceState = "Destroyed"
)

// VMInstance model represents a virtual machine tracked by the console
type VMInstance struct {
	Model
	UUID         string        `json:"uuid" gorm:"uniqueIndex;Column:uuid"`
	Name         string        `json:"name" gorm:"Column:name"`
	State        ResourceState `json:"state" gorm:"Column:state"`
	DepartmentID uint          `json:"department_id" gorm:"Column:department_id;index"`
	OwnerID      uint          `json:"owner_id" gorm:"Column:owner_id;index"`
	HostUUID     string        `json:"host_uuid" gorm:"Column:host_uuid"`
	ZoneUUID     string        `json:"zone_uuid" gorm:"Column:zone_uuid"`
}

// Volume model represents a storage volume
type Volume struct {
	Model
	UUID         string        `json:"uuid" gorm:"uniqueIndex;Column:uuid"`
	Name         string        `json:"name" gorm:"Column:name"`
	State        ResourceState `json:"state" gorm:"Column:state"`
	DepartmentID uint          `json:"department_id" gorm:"Column:department_id;index"`
	OwnerID      uint          `json:"owner_id" gorm:"Column:owner_id;index"`
	SizeGB       uint64        `json:"size_gb" gorm:"Column:size_gb"`
	InstanceUUID string        `json:"instance_uuid" gorm:"Column:instance_uuid"`
}

// Network model represents a guest network
type Network struct {
	Model
	UUID         string        `json:"uuid" gorm:"uniqueIndex;Column:uuid"`
	Name         string        `json:"name" gorm:"Column:name"`
	State        ResourceState `json:"state" gorm:"Column:state"`
	DepartmentID uint          `json:"department_id" gorm:"Column:department_id;index"`
	OwnerID      uint          `json:"owner_id" gorm:"Column:owner_id;index"`
	CIDR         string        `json:"cidr" gorm:"Column:cidr"`
	OfferingUUID string        `json:"offering_uuid" gorm:"Column:offering_uuid"`
}

// NetworkOffering model represents a network service offering
type NetworkOffering struct {
	Model
	UUID        string        `json:"uuid" gorm:"uniqueIndex;Column:uuid"`
	Name        string        `json:"name" gorm:"Column:name"`
	State       ResourceState `json:"state" gorm:"Column:state"`
	Description string        `json:"description" gorm:"Column:description"`
}

// IPAddress model represents an acquired public IP
type IPAddress struct {
	Model
	UUID         string        `json:"uuid" gorm:"uniqueIndex;Column:uuid"`
	Address      string        `json:"address" gorm:"Column:address"`
	State        ResourceState `json:"state" gorm:"Column:state"`
	DepartmentID uint          `json:"department_id" gorm:"Column:department_id;index"`
	NetworkUUID  string        `json:"network_uuid" gorm:"Column:network_uuid"`
}

// Snapshot model represents a volume snapshot
type Snapshot struct {
	Model
	UUID         string        `json:"uuid" gorm:"uniqueIndex;Column:uuid"`
	Name         string        `json:"name" gorm:"Column:name"`
	State        ResourceState `json:"state" gorm:"Column:state"`
	DepartmentID uint          `json:"department_id" gorm:"Column:department_id;index"`
	VolumeUUID   string        `json:"volume_uuid" gorm:"Column:volume_uuid"`
}

// Department model represents a tenant/billing unit owning resources
type Department struct {
	Model
	Name   string `json:"name" gorm:"Column:name"`
	Active bool   `json:"active" gorm:"Column:active"`
}

// User model represents a console user
type User struct {
	Model
	Username     string `json:"username" gorm:"uniqueIndex;Column:username"`
	Email        string `json:"email" gorm:"Column:email"`
	Role         string `json:"role" gorm:"Column:role"`
	DepartmentID uint   `json:"department_id" gorm:"Column:department_id;index"`
	Active       bool   `json:"active" gorm:"Column:active"`
}

// ResourceCount model caches the number of countable resources a department
// currently holds per resource kind, reconciled on terminal events
type ResourceCount struct {
	Model
	DepartmentID uint   `json:"department_id" gorm:"Column:department_id;uniqueIndex:idx_dept_kind"`
	ResourceKind string `json:"resource_kind" gorm:"Column:resource_kind;uniqueIndex:idx_dept_kind"`
	Count        int64  `json:"count" gorm:"Column:count"`
	Limit        int64  `json:"limit" gorm:"Column:max_limit"`
}

// AuthorizationLevel represents the level of access for an API key
type AuthorizationLevel int

const (
	// NoAuthLevel represents public access with no authentication
	NoAuthLevel AuthorizationLevel = 0
	// ViewerAuthLevel represents read-only access
	ViewerAuthLevel AuthorizationLevel = 1
	// WriterAuthLevel represents read-write access
	WriterAuthLevel AuthorizationLevel = 2
	// SudoAuthLevel represents administrative access
	SudoAuthLevel AuthorizationLevel = 3
)

// APIKey represents an API token with associated access level
type APIKey struct {
	Model
	Key                string             `json:"key" gorm:"uniqueIndex;Column:key"`
	Name               string             `json:"name" gorm:"Column:name"`
	AuthorizationLevel AuthorizationLevel `json:"authorization_level" gorm:"Column:authorization_level"`
	ExpiresAt          *time.Time         `json:"expires_at" gorm:"Column:expires_at"`
	LastUsedAt         *time.Time         `json:"last_used_at" gorm:"Column:last_used_at"`
}
