package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/JonMunkholm/projview/internal/jsonval"
)

// DefaultSearchLimit caps the number of hits returned by Search.
const DefaultSearchLimit = 50

// SearchIndex is an in-memory full-text index over the project_id, title and
// objective of a collection. Document ids are record positions.
type SearchIndex struct {
	index bleve.Index
	size  int
}

// BuildSearchIndex indexes records. The caller owns the index and must Close
// it when the collection is replaced.
func BuildSearchIndex(records []jsonval.Value) (*SearchIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(FieldTitle, textFieldMapping)
	docMapping.AddFieldMappingsAt(FieldObjective, textFieldMapping)
	docMapping.AddFieldMappingsAt(FieldProjectID, bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("project", docMapping)
	im.DefaultType = "project"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}

	batch := index.NewBatch()
	for i, rec := range records {
		doc := map[string]interface{}{
			FieldProjectID: RecordID(rec),
			FieldTitle:     recordField(rec, FieldTitle),
			FieldObjective: recordField(rec, FieldObjective),
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("index record %d: %w", i, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("build search index: %w", err)
	}

	return &SearchIndex{index: index, size: len(records)}, nil
}

// Search returns record positions matching query, best first, at most limit.
// Words match whole terms in title and objective, or a title word prefix; the
// project_id matches exactly.
func (s *SearchIndex) Search(query string, limit int) ([]int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	queries := []blevequery.Query{bleve.NewMatchQuery(query)}
	idq := bleve.NewTermQuery(query)
	idq.SetField(FieldProjectID)
	queries = append(queries, idq)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		pq := bleve.NewPrefixQuery(term)
		pq.SetField(FieldTitle)
		queries = append(queries, pq)
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Size = limit
	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	out := make([]int, 0, len(res.Hits))
	for _, hit := range res.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil || pos < 0 || pos >= s.size {
			continue
		}
		out = append(out, pos)
	}
	return out, nil
}

// Close releases the index.
func (s *SearchIndex) Close() error {
	if s == nil || s.index == nil {
		return nil
	}
	return s.index.Close()
}

// FilterLabels returns the labels whose text contains query, ignoring case,
// in record order. It serves sessions without a search index.
func FilterLabels(labels Labels, query string, limit int) []int {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []int
	for i, l := range labels.List {
		if limit > 0 && len(out) >= limit {
			break
		}
		if q == "" || strings.Contains(strings.ToLower(l), q) {
			out = append(out, i)
		}
	}
	return out
}
