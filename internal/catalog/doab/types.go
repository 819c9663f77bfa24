package doab

import "strings"

// Item is a DSpace item as returned by the DOAB REST API with expand=metadata.
type Item struct {
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	Handle       string          `json:"handle"`
	Type         string          `json:"type"`
	Link         string          `json:"link"`
	LastModified string          `json:"lastModified"`
	Metadata     []MetadataEntry `json:"metadata"`
}

// MetadataEntry is one Dublin Core (or DOAB specific) metadata value.
type MetadataEntry struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Language string `json:"language"`
}

// First returns the first non-empty value for key.
func (it *Item) First(key string) string {
	for _, m := range it.Metadata {
		if m.Key == key {
			if v := strings.TrimSpace(m.Value); v != "" {
				return v
			}
		}
	}
	return ""
}

// All returns every non-empty value for key, in document order.
func (it *Item) All(key string) []string {
	var out []string
	for _, m := range it.Metadata {
		if m.Key == key {
			if v := strings.TrimSpace(m.Value); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
