package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
)

// fileMu serialises read-merge-write cycles on the config file.
var fileMu sync.Mutex

// ConfigHandler routes API requests for /api/config to the appropriate handler
// based on the HTTP method.
func ConfigHandler(cfile string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getConfigHandler(w, r, cfile)
		case http.MethodPost:
			setConfigHandler(w, r, cfile)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// getConfigHandler reads the config file and returns its runtime subset as
// JSON. The file is read on every request so the answer matches what the
// watcher will load.
func getConfigHandler(w http.ResponseWriter, r *http.Request, cfile string) {
	slog.Debug("Handling GET /api/config request")
	fullConfig, err := ReadConfig(cfile)
	if err != nil {
		slog.Error("Failed to read config file for API", "error", err)
		http.Error(w, "Failed to read configuration", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(fullConfig.Runtime()); err != nil {
		slog.Error("Failed to encode runtime config to JSON", "error", err)
	}
}

// setConfigHandler merges a runtime subset into the config on disk,
// validates the result and writes it back, which triggers the reload.
func setConfigHandler(w http.ResponseWriter, r *http.Request, cfile string) {
	slog.Info("Handling POST /api/config request")
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	var newRuntimeConfig RuntimeConfig
	if err := json.Unmarshal(body, &newRuntimeConfig); err != nil {
		slog.Error("Failed to decode incoming JSON", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	fileMu.Lock()
	defer fileMu.Unlock()

	// The file content without environment overrides, those must not end up
	// in the file.
	data, err := os.ReadFile(cfile)
	if err != nil {
		slog.Error("Failed to read existing config for update", "error", err)
		http.Error(w, "Failed to read configuration", http.StatusInternalServerError)
		return
	}
	fullConfig, err := decode(data)
	if err != nil {
		slog.Error("Existing config file is invalid", "error", err)
		http.Error(w, "Failed to read configuration", http.StatusInternalServerError)
		return
	}

	if err := checkRuntimePayload(body, fullConfig.SchemaVersion); err != nil {
		slog.Error("Rejected config update", "error", err)
		http.Error(w, fmt.Sprintf("Invalid configuration: %v", err), http.StatusBadRequest)
		return
	}
	merged, err := fullConfig.WithRuntime(newRuntimeConfig)
	if err != nil {
		slog.Error("Rejected config update", "error", err)
		http.Error(w, fmt.Sprintf("Invalid configuration: %v", err), http.StatusBadRequest)
		return
	}

	if err := merged.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			slog.Error("Validation failed for new config", "problems", verr.Problems)
		}
		http.Error(w, fmt.Sprintf("Invalid configuration: %v", err), http.StatusBadRequest)
		return
	}

	out, err := mergeRuntime(data, newRuntimeConfig, fullConfig.SchemaVersion)
	if err == nil {
		_, err = checkDocument(out)
	}
	if err != nil {
		slog.Error("Failed to build updated config document", "error", err)
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(cfile, out, 0o644); err != nil {
		slog.Error("Failed to write updated config file", "error", err)
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	slog.Info("Successfully updated config file, node will reload.", "node", merged.Node.Name)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Configuration updated successfully.")
}
