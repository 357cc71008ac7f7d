package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxImageBytes caps the uploaded product photo size.
const maxImageBytes = 10 << 20

// ─── Account ────────────────────────────────────────────────────────────────

// handleAccount returns the authenticated account's balance.
// GET /api/account
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r.Context())
	balance, err := s.credits.Balance(r.Context(), account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": account,
		"balance":  balance,
	})
}

// handleRedeem consumes a voucher code for the authenticated account.
// POST /api/account/redeem
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "voucher code is required")
		return
	}

	account := accountFrom(r.Context())
	amount, err := s.credits.Redeem(r.Context(), account, strings.TrimSpace(req.Code))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	balance, err := s.credits.Balance(r.Context(), account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"credited": amount,
		"balance":  balance,
	})
}

// handleHistory returns recent ledger entries, newest first.
// GET /api/account/history?limit=N
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.credits.History(r.Context(), accountFrom(r.Context()), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// ─── Workflows ──────────────────────────────────────────────────────────────

// handleCreateWorkflow starts a workflow from a multipart upload with an
// "image" file and an optional "brand" field.
// POST /api/workflows
func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form with an image file is required")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read image")
		return
	}
	if len(image) == 0 {
		writeError(w, http.StatusBadRequest, "image file is empty")
		return
	}
	if len(image) > maxImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image exceeds 10 MiB")
		return
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mime, "image/") {
		writeError(w, http.StatusBadRequest, "upload must be an image")
		return
	}

	wf := s.sessions.Create(accountFrom(r.Context()), r.FormValue("brand"), image, mime)
	writeJSON(w, http.StatusCreated, wf.Snapshot())
}

// handleGetWorkflow returns the workflow snapshot.
// GET /api/workflows/{id}
func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.sessions.Get(chi.URLParam(r, "id"), accountFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	wf.Lock()
	snap := wf.Snapshot()
	wf.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

// handleDeleteWorkflow discards a workflow.
// DELETE /api/workflows/{id}
func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.sessions.Get(chi.URLParam(r, "id"), accountFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.sessions.Remove(wf.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleRunStage executes one generation stage on the workflow and returns
// the updated snapshot plus the remaining balance.
// POST /api/workflows/{id}/stages/{stage}
func (s *Server) handleRunStage(w http.ResponseWriter, r *http.Request) {
	account := accountFrom(r.Context())
	wf, err := s.sessions.Get(chi.URLParam(r, "id"), account)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.runner.RunStage(r.Context(), account, wf, chi.URLParam(r, "stage")); err != nil {
		writeDomainError(w, err)
		return
	}

	balance, err := s.credits.Balance(r.Context(), account)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	wf.Lock()
	snap := wf.Snapshot()
	wf.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"workflow": snap,
		"balance":  balance,
	})
}

// handleReset discards all artifacts and returns the workflow to the upload
// phase. The only backward transition. Spent credits are not returned.
// POST /api/workflows/{id}/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	wf, err := s.sessions.Get(chi.URLParam(r, "id"), accountFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	wf.Lock()
	wf.Reset()
	snap := wf.Snapshot()
	wf.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

// handleExport streams the listing bundle as a zip download.
// GET /api/workflows/{id}/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	wf, err := s.sessions.Get(chi.URLParam(r, "id"), accountFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	archive, err := s.exporter.Export(wf)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "listing-"+wf.ID[:8]+".zip"))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.WriteHeader(http.StatusOK)
	w.Write(archive)
}
