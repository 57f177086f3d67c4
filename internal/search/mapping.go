package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for item documents: the
// canonical name and aliases get English analysis for full-text and
// fuzzy matching, category stays a keyword for exact filtering.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = en.AnalyzerName
	nameField.Store = true
	nameField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameField)

	aliasField := bleve.NewTextFieldMapping()
	aliasField.Analyzer = en.AnalyzerName
	aliasField.Store = true
	docMapping.AddFieldMappingsAt("aliases", aliasField)

	categoryField := bleve.NewTextFieldMapping()
	categoryField.Analyzer = keyword.Name
	categoryField.Store = true
	docMapping.AddFieldMappingsAt("category", categoryField)

	activeField := bleve.NewBooleanFieldMapping()
	activeField.Store = true
	docMapping.AddFieldMappingsAt("active", activeField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}
