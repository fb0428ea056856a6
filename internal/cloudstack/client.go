package cloudstack

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"example.com/cloudpanel/config"
	"example.com/cloudpanel/internal/models"
)

// Client is the read-only surface of the orchestration platform's list API.
// The console only observes the platform: it refreshes resource state and
// re-polls job results for missed callbacks, never executes jobs.
type Client interface {
	GetVirtualMachineState(ctx context.Context, instanceUUID string) (models.ResourceState, error)
	QueryAsyncJobResult(ctx context.Context, jobID string) (*models.JobStatusPayload, error)
}

// client implements Client against the CloudStack HTTP API
type client struct {
	endpoint  string
	apiKey    string
	secretKey string
	http      *http.Client
}

// NewClient creates a new platform API client
func NewClient(cfg config.CloudStackConfig) Client {
	timeout := time.Duration(cfg.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &client{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

// listVirtualMachinesResponse is the subset of the platform response we read
type listVirtualMachinesResponse struct {
	ListVirtualMachinesResponse struct {
		VirtualMachine []struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"virtualmachine"`
	} `json:"listvirtualmachinesresponse"`
}

// queryAsyncJobResultResponse is the subset of the job poll response we read
type queryAsyncJobResultResponse struct {
	QueryAsyncJobResultResponse struct {
		JobID      string `json:"jobid"`
		JobStatus  int    `json:"jobstatus"`
		JobResult  json.RawMessage `json:"jobresult"`
		ResultCode int    `json:"jobresultcode"`
	} `json:"queryasyncjobresultresponse"`
}

// GetVirtualMachineState fetches the platform state of one VM by uuid
func (c *client) GetVirtualMachineState(ctx context.Context, instanceUUID string) (models.ResourceState, error) {
	body, err := c.call(ctx, "listVirtualMachines", map[string]string{"id": instanceUUID})
	if err != nil {
		return "", err
	}

	var resp listVirtualMachinesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode listVirtualMachines response: %w", err)
	}

	vms := resp.ListVirtualMachinesResponse.VirtualMachine
	if len(vms) == 0 {
		return "", fmt.Errorf("virtual machine %s not found on platform", instanceUUID)
	}

	return mapVMState(vms[0].State), nil
}

// QueryAsyncJobResult re-polls the result of an async job. Used by the
// reconciler when a callback never arrived.
func (c *client) QueryAsyncJobResult(ctx context.Context, jobID string) (*models.JobStatusPayload, error) {
	body, err := c.call(ctx, "queryAsyncJobResult", map[string]string{"jobid": jobID})
	if err != nil {
		return nil, err
	}

	var resp queryAsyncJobResultResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode queryAsyncJobResult response: %w", err)
	}

	payload := &models.JobStatusPayload{JobID: resp.QueryAsyncJobResultResponse.JobID}
	// Platform job status codes: 0 pending, 1 succeeded, 2 failed
	switch resp.QueryAsyncJobResultResponse.JobStatus {
	case 1:
		payload.JobStatus = models.JobStatusSucceeded
	case 2:
		payload.JobStatus = models.JobStatusFailed
		payload.Message = string(resp.QueryAsyncJobResultResponse.JobResult)
	default:
		payload.JobStatus = models.JobStatusInProgress
	}
	return payload, nil
}

// mapVMState maps platform VM states onto console resource states
func mapVMState(state string) models.ResourceState {
	switch strings.ToLower(state) {
	case "running", "starting":
		return models.ResourceStateRunning
	case "stopped", "stopping", "shutdown":
		return models.ResourceStateStopped
	case "destroyed", "expunging":
		return models.ResourceStateDestroyed
	case "error":
		return models.ResourceStateFailed
	default:
		return models.ResourceStateCreating
	}
}

// call issues one signed GET against the platform API
func (c *client) call(ctx context.Context, command string, params map[string]string) ([]byte, error) {
	values := url.Values{}
	values.Set("command", command)
	values.Set("response", "json")
	values.Set("apiKey", c.apiKey)
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("signature", c.sign(values))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform API call %s failed: %w", command, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform API call %s returned status %d", command, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform API response: %w", err)
	}
	return body, nil
}

// sign computes the CloudStack request signature: HMAC-SHA1 over the sorted,
// lower-cased query string
func (c *client) sign(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, strings.ToLower(k)+"="+strings.ToLower(url.QueryEscape(values.Get(k))))
	}

	mac := hmac.New(sha1.New, []byte(c.secretKey))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
