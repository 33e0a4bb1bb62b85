// Package searchindex provides full-text search over a scan's findings via
// a Bleve index, letting a user query findings by message, file, or tag
// text (spec §4.12's domain-stack enrichment — out of spec.md's own
// scope, but real and exercised).
package searchindex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/routewarden/routewarden/internal/finding"
)

// Index manages the Bleve full-text index over a scan's findings.
type Index struct {
	bi   bleve.Index
	path string
	mu   sync.RWMutex
}

// findingDocument is the indexed shape of a Finding.
type findingDocument struct {
	RuleID     string   `json:"ruleId"`
	Severity   string   `json:"severity"`
	Confidence string   `json:"confidence"`
	Message    string   `json:"message"`
	File       string   `json:"file"`
	Snippet    string   `json:"snippet"`
	Tags       []string `json:"tags"`
}

// Result is one search hit.
type Result struct {
	Key     string  `json:"key"`
	RuleID  string  `json:"ruleId"`
	File    string  `json:"file"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
}

// Open creates or opens a findings index at
// basePath/.protoscan/search/findings.bleve.
func Open(basePath string) (*Index, error) {
	indexPath := filepath.Join(basePath, ".protoscan", "search", "findings.bleve")

	bi, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		bi, err = bleve.New(indexPath, buildMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create findings index: %w", err)
		}
	} else if err != nil {
		_ = os.RemoveAll(indexPath)
		bi, err = bleve.New(indexPath, buildMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create findings index: %w", err)
		}
	}

	return &Index{bi: bi, path: indexPath}, nil
}

func buildMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "en"

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = "keyword"

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("ruleId", keywordField)
	doc.AddFieldMappingsAt("severity", keywordField)
	doc.AddFieldMappingsAt("confidence", keywordField)
	doc.AddFieldMappingsAt("message", textField)
	doc.AddFieldMappingsAt("file", keywordField)
	doc.AddFieldMappingsAt("snippet", textField)
	doc.AddFieldMappingsAt("tags", keywordField)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = "en"
	return im
}

// Reindex rebuilds the entire index from a scan's active findings,
// identifying each document by its stable baseline key.
func (idx *Index) Reindex(findings []finding.Finding) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	batch := idx.bi.NewBatch()
	for _, f := range findings {
		if err := batch.Index(f.Key(), toDocument(f)); err != nil {
			return fmt.Errorf("failed to index finding %s: %w", f.Key(), err)
		}
	}
	return idx.bi.Batch(batch)
}

func toDocument(f finding.Finding) findingDocument {
	return findingDocument{
		RuleID:     string(f.RuleID),
		Severity:   string(f.Severity),
		Confidence: string(f.Confidence),
		Message:    f.Message,
		File:       f.File,
		Snippet:    f.Snippet,
		Tags:       f.Tags,
	}
}

// Search runs a full-text query over message/file/snippet/tags, limited
// to limit results (default 20).
func (idx *Index) Search(query string, limit int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetFuzziness(1)

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit
	req.Fields = []string{"ruleId", "file", "severity"}
	req.Highlight = bleve.NewHighlight()

	searchResult, err := idx.bi.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		r := Result{Key: hit.ID, Score: hit.Score}
		if v, ok := hit.Fields["ruleId"].(string); ok {
			r.RuleID = v
		}
		if v, ok := hit.Fields["file"].(string); ok {
			r.File = v
		}
		if len(hit.Fragments) > 0 {
			for _, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					r.Snippet = strings.Join(fragments, " … ")
					break
				}
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// DocCount returns the number of indexed findings.
func (idx *Index) DocCount() (uint64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.bi.DocCount()
}

// Close closes the underlying index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.bi.Close()
}
