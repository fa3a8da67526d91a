package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/noder-app/noder/pkg/providers"
)

const chatTimeout = 2 * time.Minute

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	models, err := s.llm.ListModels(ctx)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]interface{}{"models": models})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Messages []providers.Message    `json:"messages"`
		Model    string                 `json:"model"`
		Options  map[string]interface{} `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if len(body.Messages) == 0 {
		http.Error(w, `{"error":"messages are required"}`, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	resp, err := s.llm.Chat(ctx, body.Messages, body.Model, body.Options)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadGateway)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleFileDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		URL        string `json:"url"`
		Filename   string `json:"filename"`
		DestFolder string `json:"destFolder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if body.URL == "" || body.Filename == "" {
		http.Error(w, `{"error":"url and filename are required"}`, http.StatusBadRequest)
		return
	}

	path, err := s.filesSvc.Download(r.Context(), body.URL, body.Filename, body.DestFolder)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"path": path})
}

func (s *Server) handleUpdateCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	release, available, err := s.upd.CheckForUpdate(ctx, s.version)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadGateway)
		return
	}

	resp := map[string]interface{}{
		"available":      available,
		"currentVersion": s.version,
	}
	if available {
		resp["version"] = release.TagName
		resp["notes"] = release.Body
	}
	writeJSON(w, resp)
}

// handleUpdateApply downloads the latest release asset and launches the
// detached installer. On success the process should be restarted shortly.
func (s *Server) handleUpdateApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	release, available, err := s.upd.CheckForUpdate(ctx, s.version)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadGateway)
		return
	}
	if !available {
		writeJSON(w, map[string]interface{}{"applied": false, "message": "already up to date"})
		return
	}

	asset, err := s.upd.SelectAsset(release)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadGateway)
		return
	}

	path, err := s.upd.Download(ctx, asset)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadGateway)
		return
	}

	if err := s.upd.Apply(path); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"applied": true, "version": release.TagName})
}
