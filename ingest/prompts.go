package ingest

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// PromptData is what the prompt templates see.
type PromptData struct {
	ProductName string
	ImageURLs   []string
	Categories  string
}

// promptTemplate maps a category to its prompt template and the trailer
// categories the model may choose from.
func promptTemplate(category string) (name, categories string) {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "golf", "golfball", "distance", "feel", "design":
		return "golf_review.tmpl", "비거리(distance), 타구감(feel), 디자인(design)"
	case "tech", "technology":
		return "tech_analysis.tmpl", "tech"
	default:
		return "general_review.tmpl", "general"
	}
}

// BuildPrompt renders the review prompt for category.
func BuildPrompt(category, productName string, imageURLs []string) (string, error) {
	name, categories := promptTemplate(category)
	var buf bytes.Buffer
	err := promptTemplates.ExecuteTemplate(&buf, name, PromptData{
		ProductName: productName,
		ImageURLs:   imageURLs,
		Categories:  categories,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// BuildExtractionPrompt renders the prompt asking only for product name and category.
func BuildExtractionPrompt(imageURLs []string) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, "extraction.tmpl", PromptData{ImageURLs: imageURLs}); err != nil {
		return "", fmt.Errorf("render extraction prompt: %w", err)
	}
	return buf.String(), nil
}

// Identification is the strict JSON the extraction prompt asks for.
type Identification struct {
	ProductName string `json:"productName"`
	Category    string `json:"category"`
}

// ParseIdentification decodes the extraction answer, tolerating code fences
// and prose around the JSON object.
func ParseIdentification(content string) (Identification, error) {
	var id Identification
	trimmed := stripCodeFence(content)
	if trimmed == "" {
		return id, errors.New("identification: empty payload")
	}
	if err := json.Unmarshal([]byte(trimmed), &id); err != nil {
		start := strings.Index(trimmed, "{")
		end := strings.LastIndex(trimmed, "}")
		if start < 0 || end <= start {
			return Identification{}, fmt.Errorf("identification: %w", err)
		}
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &id); err != nil {
			return Identification{}, fmt.Errorf("identification: %w", err)
		}
	}
	id.ProductName = strings.TrimSpace(id.ProductName)
	id.Category = strings.ToLower(strings.TrimSpace(id.Category))
	if id.ProductName == "" {
		return Identification{}, errors.New("identification: productName missing")
	}
	return id, nil
}
