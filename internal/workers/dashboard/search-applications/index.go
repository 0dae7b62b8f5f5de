// internal/workers/dashboard/search-applications/index.go
package searchapplications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"childcare-registration/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

var ErrIndexingFailed = errors.New("INDEXING_FAILED")

// Index reads and writes the application search index.
type Index struct {
	client *elasticsearch.Client
	name   string
}

func NewIndex(client *elasticsearch.Client, name string) *Index {
	return &Index{client: client, name: name}
}

func (ix *Index) Name() string {
	return "search-index"
}

// AfterSubmit indexes the submitted application.
func (ix *Index) AfterSubmit(ctx context.Context, agg *models.Aggregate) error {
	return ix.Put(ctx, agg)
}

func (ix *Index) Put(ctx context.Context, agg *models.Aggregate) error {
	if agg.IsNew() {
		return fmt.Errorf("%w: application has no id", ErrIndexingFailed)
	}
	body, err := json.Marshal(newDocument(agg))
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      ix.name,
		DocumentID: agg.Application.ID.String(),
		Body:       bytes.NewReader(body),
		Refresh:    "wait_for",
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexingFailed, res.Status())
	}
	return nil
}

// Search returns matching application ids ordered by relevance.
func (ix *Index) Search(ctx context.Context, query string, size int) ([]uuid.UUID, error) {
	body, err := json.Marshal(buildSearchQuery(query))
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index:          []string{ix.name},
		Body:           bytes.NewReader(body),
		Size:           &size,
		SourceIncludes: []string{"id"},
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// buildSearchQuery matches application number prefixes, exact emails and
// fuzzy applicant names.
func buildSearchQuery(query string) map[string]interface{} {
	q := strings.TrimSpace(query)
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{
						"prefix": map[string]interface{}{
							"application_number": strings.ToUpper(q),
						},
					},
					map[string]interface{}{
						"term": map[string]interface{}{
							"email": strings.ToLower(q),
						},
					},
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":     q,
							"fields":    []string{"applicant_name^2", "first_name", "last_name"},
							"fuzziness": "AUTO",
						},
					},
				},
				"minimum_should_match": 1,
			},
		},
	}
}
