package store

import (
	"encoding/json"
	"fmt"

	"github.com/sifan077/QuickLink/internal/app/model"
)

// Encode serializes the collection into the snapshot layout: a JSON array of
// link records in insertion order.
func Encode(links []model.Link) ([]byte, error) {
	if links == nil {
		links = []model.Link{}
	}
	data, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("encode links: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot. A JSON null decodes to an empty collection and
// missing click arrays are normalized to empty ones.
func Decode(data []byte) ([]model.Link, error) {
	var links []model.Link
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("decode links: %w", err)
	}
	for i := range links {
		if links[i].Clicks == nil {
			links[i].Clicks = []model.Click{}
		}
	}
	if links == nil {
		links = []model.Link{}
	}
	return links, nil
}
