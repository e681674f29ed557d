package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping defines the track document mapping: full-text fields
// with English stemming for title/artist/album, keyword for format, numeric
// for duration.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = en.AnalyzerName
	titleField.Store = true
	titleField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleField)

	artistField := bleve.NewTextFieldMapping()
	artistField.Analyzer = en.AnalyzerName
	artistField.Store = true
	artistField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("artist_name", artistField)

	albumField := bleve.NewTextFieldMapping()
	albumField.Analyzer = en.AnalyzerName
	albumField.Store = true
	docMapping.AddFieldMappingsAt("album_name", albumField)

	formatField := bleve.NewTextFieldMapping()
	formatField.Analyzer = keyword.Name
	formatField.Store = true
	docMapping.AddFieldMappingsAt("file_format", formatField)

	durationField := bleve.NewNumericFieldMapping()
	durationField.Store = true
	docMapping.AddFieldMappingsAt("duration_ms", durationField)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
