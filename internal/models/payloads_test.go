package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJobStatusMapsToEventStatus(t *testing.T) {
	require.Equal(t, EventStatusSucceeded, JobStatusSucceeded.EventStatus())
	require.Equal(t, EventStatusFailed, JobStatusFailed.EventStatus())
	require.Equal(t, EventStatusInProgress, JobStatusInProgress.EventStatus())
	require.Equal(t, EventStatusCreated, JobStatusPending.EventStatus())
	require.Equal(t, EventStatusCreated, JobStatus("SOMETHING_NEW").EventStatus())
}

func TestEventStatusIsTerminal(t *testing.T) {
	require.True(t, EventStatusSucceeded.IsTerminal())
	require.True(t, EventStatusFailed.IsTerminal())
	require.False(t, EventStatusCreated.IsTerminal())
	require.False(t, EventStatusInProgress.IsTerminal())
}

func TestJobStatusPayloadDropsUnknownFields(t *testing.T) {
	body := []byte(`{
		"jobId": "job-1",
		"jobStatus": "SUCCEEDED",
		"commandEventType": "vm.start",
		"resourceUuid": "vm-1",
		"cmdInfo": "opaque platform blob",
		"userContext": {"zone": "z1"}
	}`)

	var payload JobStatusPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Equal(t, "job-1", payload.JobID)
	require.Equal(t, JobStatusSucceeded, payload.JobStatus)
	require.Equal(t, "vm.start", payload.EventName)
	require.Equal(t, "vm-1", payload.ResourceUUID)
}

func TestResourceKindForType(t *testing.T) {
	cases := []struct {
		resourceType string
		kind         ResourceKind
		ok           bool
	}{
		{"VM", ResourceKindVM, true},
		{"VirtualMachine", ResourceKindVM, true},
		{"Volume", ResourceKindVolume, true},
		{"Network", ResourceKindNetwork, true},
		{"IpAddress", ResourceKindIP, true},
		{"PublicIpAddress", ResourceKindIP, true},
		{"Snapshot", ResourceKindSnapshot, true},
		{"Template", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		kind, ok := ResourceKindForType(tc.resourceType)
		require.Equal(t, tc.ok, ok, tc.resourceType)
		require.Equal(t, tc.kind, kind, tc.resourceType)
	}
}

func TestResourceKindValid(t *testing.T) {
	for _, kind := range []ResourceKind{ResourceKindVM, ResourceKindVolume, ResourceKindNetwork, ResourceKindIP, ResourceKindSnapshot} {
		require.True(t, kind.Valid())
	}
	require.False(t, ResourceKind("template").Valid())
	require.False(t, ResourceKind("").Valid())
}
