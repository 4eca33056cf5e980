package search

import (
	"bytes"
	"context"
	"encoding/json"

	"example.com/safetysync/services/telemetry/config"
	"example.com/safetysync/services/telemetry/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Index names, combined with the configured prefix
const (
	AlertIndex   = "alerts"
	QualityIndex = "quality"
)

// Indexer pushes documents into the search backend. Indexing is best-effort:
// callers log failures and continue, the database remains the source of truth.
type Indexer interface {
	IndexAlert(ctx context.Context, alert *models.Alert) error
	IndexQualityRecord(ctx context.Context, record *models.QualityRecord) error
}

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
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
		config: cfg,
	}, nil
}

// IndexAlert indexes an alert in Elasticsearch
func (c *ElasticClient) IndexAlert(ctx context.Context, alert *models.Alert) error {
	doc := map[string]interface{}{
		"id":              alert.ID.String(),
		"equipment_id":    alert.EquipmentID,
		"metric_name":     alert.MetricName,
		"alert_type":      alert.AlertType,
		"severity":        alert.Severity,
		"message":         alert.Message,
		"threshold_value": alert.ThresholdValue,
		"actual_value":    alert.ActualValue,
		"resolved":        alert.Resolved,
		"created_at":      alert.CreatedAt,
	}

	if err := c.index(ctx, AlertIndex, alert.ID.String(), doc); err != nil {
		return err
	}

	log.Debug().Str("alert_id", alert.ID.String()).Msg("alert indexed")
	return nil
}

// IndexQualityRecord indexes a per-batch quality record in Elasticsearch
func (c *ElasticClient) IndexQualityRecord(ctx context.Context, record *models.QualityRecord) error {
	doc := map[string]interface{}{
		"batch_id":      record.BatchID.String(),
		"source":        record.Source,
		"submitted":     record.Submitted,
		"accepted":      record.Accepted,
		"rejected":      record.Rejected,
		"deduplicated":  record.Deduplicated,
		"inserted":      record.Inserted,
		"completeness":  record.Completeness,
		"validity":      record.Validity,
		"timeliness":    record.Timeliness,
		"uniqueness":    record.Uniqueness,
		"consistency":   record.Consistency,
		"status":        record.Status,
		"processing_ms": record.ProcessingMs,
		"created_at":    record.CreatedAt,
	}

	return c.index(ctx, QualityIndex, record.BatchID.String(), doc)
}

// index marshals and submits one document
func (c *ElasticClient) index(ctx context.Context, index, docID string, doc map[string]interface{}) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal document")
	}

	req := esapi.IndexRequest{
		Index:      config.FormatIndex(c.config, index),
		DocumentID: docID,
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

	return nil
}
