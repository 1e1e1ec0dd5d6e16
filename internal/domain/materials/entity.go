package materials

import "time"

// Material is one categorized text item (news/market material). URL is the
// unique key; re-importing the same URL overwrites the previous row.
type Material struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Date        string    `json:"date"`
	Category    string    `json:"category"`
	SourceType  string    `json:"source_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Text returns the body used for embedding and analysis. Empty content falls
// back to the description, matching the CSV import contract.
func (m *Material) Text() string {
	if m.Content != "" {
		return m.Content
	}
	return m.Description
}

// IndexedMaterial pairs a material with its embedding for vector upsert
type IndexedMaterial struct {
	Material Material
	Vector   []float32
}
