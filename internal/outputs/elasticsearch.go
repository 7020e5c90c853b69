package outputs

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/speedsleuth/speed-sleuth/internal/config"
	"github.com/speedsleuth/speed-sleuth/internal/models"
)

// ElasticsearchOutput pushes run records to Elasticsearch
type ElasticsearchOutput struct {
	config        *config.ElasticsearchConfig
	client        *elasticsearch.Client
	bulkIndexer   esutil.BulkIndexer
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	recordChannel chan *models.RunRecord
}

// NewElasticsearchOutput creates a new Elasticsearch output
func NewElasticsearchOutput(cfg *config.ElasticsearchConfig) (*ElasticsearchOutput, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	esCfg := elasticsearch.Config{
		Addresses:     []string{cfg.Endpoint},
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	}

	if cfg.APIKey != "" {
		esCfg.APIKey = cfg.APIKey
	} else if cfg.Username != "" && cfg.Password != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	if cfg.TLSSkipVerify {
		esCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch returned error: %s", res.Status())
	}

	log.Printf("Connected to Elasticsearch at %s", cfg.Endpoint)

	bulkIndexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        client,
		NumWorkers:    2,
		FlushBytes:    int(cfg.BulkSize) * 1024,
		FlushInterval: cfg.FlushInterval,
		OnError: func(ctx context.Context, err error) {
			log.Printf("Elasticsearch bulk indexer error: %v", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &ElasticsearchOutput{
		config:        cfg,
		client:        client,
		bulkIndexer:   bulkIndexer,
		ctx:           ctx,
		cancel:        cancel,
		recordChannel: make(chan *models.RunRecord, 100),
	}

	e.wg.Add(1)
	go e.processRecords()

	return e, nil
}

// processRecords is a background worker that indexes run records
func (e *ElasticsearchOutput) processRecords() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case record := <-e.recordChannel:
			if err := e.indexRecord(record); err != nil {
				log.Printf("Failed to index record to Elasticsearch: %v", err)
			}
		}
	}
}

// indexRecord indexes a single run record
func (e *ElasticsearchOutput) indexRecord(record *models.RunRecord) error {
	indexName := e.formatIndexName(record.Timestamp)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	return e.bulkIndexer.Add(
		e.ctx,
		esutil.BulkIndexerItem{
			Action:     "index",
			Index:      indexName,
			DocumentID: record.RunID,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					log.Printf("Elasticsearch indexing error: %v", err)
				} else {
					log.Printf("Elasticsearch indexing failed: %s: %s", res.Error.Type, res.Error.Reason)
				}
			},
		},
	)
}

// formatIndexName expands date patterns in the configured index pattern.
// %{+yyyy.MM.dd} -> 2024.01.15
func (e *ElasticsearchOutput) formatIndexName(t time.Time) string {
	indexName := e.config.IndexPattern

	if strings.Contains(indexName, "%{+yyyy.MM.dd}") {
		indexName = strings.ReplaceAll(indexName, "%{+yyyy.MM.dd}", t.Format("2006.01.02"))
	}

	if strings.Contains(indexName, "%{+yyyy.MM}") {
		indexName = strings.ReplaceAll(indexName, "%{+yyyy.MM}", t.Format("2006.01"))
	}

	if strings.Contains(indexName, "%{+yyyy}") {
		indexName = strings.ReplaceAll(indexName, "%{+yyyy}", t.Format("2006"))
	}

	return indexName
}

// Write queues a run record for async indexing
func (e *ElasticsearchOutput) Write(record *models.RunRecord) error {
	if e == nil {
		return nil
	}

	select {
	case e.recordChannel <- record:
		return nil
	case <-e.ctx.Done():
		return fmt.Errorf("Elasticsearch output is shutting down")
	default:
		// Channel is full; drop rather than block the dispatcher
		log.Printf("Warning: Elasticsearch record channel is full, dropping record")
		return nil
	}
}

// Name returns the output module name
func (e *ElasticsearchOutput) Name() string {
	return "elasticsearch"
}

// Close flushes pending documents and closes the connection
func (e *ElasticsearchOutput) Close() error {
	if e == nil {
		return nil
	}

	log.Println("Shutting down Elasticsearch output...")

	e.cancel()
	e.wg.Wait()

	if err := e.bulkIndexer.Close(context.Background()); err != nil {
		log.Printf("Error closing Elasticsearch bulk indexer: %v", err)
		return err
	}

	stats := e.bulkIndexer.Stats()
	log.Printf("Elasticsearch indexer stats: %d indexed, %d failed", stats.NumIndexed, stats.NumFailed)

	return nil
}
