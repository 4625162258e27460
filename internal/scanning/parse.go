package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseTicketJSON parses the JSON response from an LLM provider
func parseTicketJSON(text string) (*TicketData, error) {
	text = strings.TrimSpace(text)

	// Remove opening markdown code blocks
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var data TicketData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	// Drop lines the model could not name or price
	lines := make([]TicketLine, 0, len(data.Items))
	for _, line := range data.Items {
		line.Name = strings.TrimSpace(line.Name)
		if line.Name == "" || !line.Price.IsPositive() {
			continue
		}
		lines = append(lines, line)
	}
	data.Items = lines

	return &data, nil
}
