package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"ikh/weasel-index/internal/index"
)

// NotifyIndexSaved tells the API at apiUrl that the index document at
// indexPath has been rewritten. An empty apiUrl disables the notification.
func NotifyIndexSaved(apiUrl, indexPath string, counts index.Counts) error {
	if apiUrl == "" {
		return nil
	}

	payload := map[string]interface{}{
		"index_path": indexPath,
		"subjects":   counts.Subjects,
		"studies":    counts.Studies,
		"series":     counts.Series,
		"images":     counts.Images,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(apiUrl, "application/json", bytes.NewBuffer(jsonPayload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	return nil
}
