package search

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"anoa.com/folio/internal/entity"
	"anoa.com/folio/pkg/logger"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const publicationsIndex = "publications"

// PublicationIndex keeps a full-text copy of publications.
type PublicationIndex interface {
	IndexPublication(pub *entity.Publication) error
	DeletePublication(id uuid.UUID) error
	SearchPublications(query string, limit int64) ([]uuid.UUID, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) PublicationIndex {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndex()
	return s
}

func (s *meiliSearchService) initIndex() {
	log := logger.Get()

	filterable := []interface{}{"user_id"}
	if _, err := s.client.Index(publicationsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		log.WithError(err).Warn("failed to update publications filterable attributes")
	}

	sortable := []string{"written_at"}
	if _, err := s.client.Index(publicationsIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.WithError(err).Warn("failed to update publications sortable attributes")
	}

	searchable := []string{"title", "text", "author"}
	if _, err := s.client.Index(publicationsIndex).UpdateSearchableAttributes(&searchable); err != nil {
		log.WithError(err).Warn("failed to update publications searchable attributes")
	}
}

type publicationDoc struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	WrittenAt int64  `json:"written_at"`
}

// cleanForIndex strips markup so only readable text is searchable.
func (s *meiliSearchService) cleanForIndex(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	cleanText := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliSearchService) IndexPublication(pub *entity.Publication) error {
	doc := publicationDoc{
		ID:        pub.ID.String(),
		UserID:    pub.UserID.String(),
		Title:     s.cleanForIndex(pub.Title),
		Text:      s.cleanForIndex(pub.Text),
		Author:    pub.Author,
		WrittenAt: pub.WrittenAt.Unix(),
	}

	task, err := s.client.Index(publicationsIndex).AddDocuments([]publicationDoc{doc}, strPtr("id"))
	if err != nil {
		return fmt.Errorf("index publication %s: %w", pub.ID, err)
	}
	logger.Get().WithField("task_uid", task.TaskUID).Debugf("indexed publication %s", pub.ID)
	return nil
}

func (s *meiliSearchService) DeletePublication(id uuid.UUID) error {
	if _, err := s.client.Index(publicationsIndex).DeleteDocument(id.String()); err != nil {
		return fmt.Errorf("delete publication %s from index: %w", id, err)
	}
	return nil
}

// SearchPublications returns matching ids, newest first.
func (s *meiliSearchService) SearchPublications(query string, limit int64) ([]uuid.UUID, error) {
	raw, err := s.client.Index(publicationsIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit:                limit,
		AttributesToRetrieve: []string{"id"},
		Sort:                 []string{"written_at:desc"},
	})
	if err != nil {
		return nil, fmt.Errorf("search publications: %w", err)
	}

	var result struct {
		Hits []struct {
			ID string `json:"id"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &result); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
