package search

import (
	"bytes"
	"context"
	"encoding/json"

	"example.com/cloudpanel/config"
	"example.com/cloudpanel/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AuditIndexer writes archived events into the audit index, where they stay
// queryable after leaving the active ledger
type AuditIndexer interface {
	IndexEvent(ctx context.Context, event *models.Event) error
}

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	index  string
	log    *logrus.Logger
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig, log *logrus.Logger) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		index:  cfg.Index,
		log:    log,
	}, nil
}

// IndexEvent indexes one archived event document
func (c *ElasticClient) IndexEvent(ctx context.Context, event *models.Event) error {
	doc := map[string]interface{}{
		"uuid":          event.UUID,
		"event":         event.EventName,
		"event_type":    event.EventType,
		"status":        event.Status,
		"job_id":        event.JobID,
		"resource_uuid": event.ResourceUUID,
		"resource_type": event.ResourceType,
		"message":       event.Message,
		"created_at":    event.CreatedAt,
		"archived_at":   event.UpdatedAt,
	}
	if event.EventOwnerID != nil {
		doc["event_owner_id"] = *event.EventOwnerID
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event document")
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: event.UUID,
		Body:       bytes.NewReader(docJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		var e map[string]interface{}
		if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
			return errors.Wrap(err, "failed to parse Elasticsearch error response")
		}
		return errors.Errorf("Elasticsearch index error: %v", e)
	}

	c.log.WithField("event_uuid", event.UUID).Debug("Event indexed for audit")
	return nil
}
