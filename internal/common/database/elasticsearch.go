// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"childcare-registration/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ApplicationIndexMapping is the mapping for the application search index.
const ApplicationIndexMapping = `{
  "mappings": {
    "properties": {
      "id":                 {"type": "keyword"},
      "application_number": {"type": "keyword"},
      "status":             {"type": "keyword"},
      "applicant_name":     {"type": "text"},
      "first_name":         {"type": "text"},
      "last_name":          {"type": "text"},
      "email":              {"type": "keyword", "normalizer": "lowercase"},
      "local_authority":    {"type": "keyword"},
      "updated_at":         {"type": "date"}
    }
  },
  "settings": {
    "analysis": {
      "normalizer": {
        "lowercase": {"type": "custom", "filter": ["lowercase"]}
      }
    }
  }
}`

// ElasticsearchClient wraps the Elasticsearch client
type ElasticsearchClient struct {
	Client *elasticsearch.Client
	Index  string
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.GetAddresses(),
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es, Index: cfg.Index}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the application index when it does not exist yet.
func (c *ElasticsearchClient) EnsureIndex(ctx context.Context) error {
	res, err := c.Client.Indices.Exists([]string{c.Index}, c.Client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch index check failed: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = c.Client.Indices.Create(
		c.Index,
		c.Client.Indices.Create.WithContext(ctx),
		c.Client.Indices.Create.WithBody(strings.NewReader(ApplicationIndexMapping)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index create failed: %w", err)
	}
	defer res.Body.Close()

	// 400 resource_already_exists when another replica won the race
	if res.IsError() && res.StatusCode != 400 {
		return fmt.Errorf("elasticsearch index create error: %s", res.Status())
	}
	return nil
}
