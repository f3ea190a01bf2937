package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// artifactBuildRequest matches the API request structure
type artifactBuildRequest struct {
	Commands []dialogue.Command       `json:"commands"`
	Settings *dialogue.ScriptSettings `json:"settings,omitempty"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// fetchSpeakers reads the registry stored by the API.
func fetchSpeakers(client *http.Client, baseURL string) (dialogue.Registry, error) {
	resp, err := client.Get(baseURL + "/v1/speakers")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body, "failed to get speakers")
	}

	var registry dialogue.Registry
	if err := json.Unmarshal(body, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse speakers response: %w", err)
	}
	return registry, nil
}

// saveArtifact has the API build and store the artifact under the script
// name. It returns the stored artifact text.
func saveArtifact(client *http.Client, baseURL string, commands []dialogue.Command, settings dialogue.ScriptSettings) (string, error) {
	jsonData, err := json.Marshal(artifactBuildRequest{Commands: commands, Settings: &settings})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/artifacts/build?save=true",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp.StatusCode, body, "failed to save artifact")
	}
	return string(body), nil
}

func apiError(status int, body []byte, msg string) error {
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("API returned status %d: %s", status, string(body))
	}
	return fmt.Errorf("%s: %s", msg, errorResp.Error)
}
