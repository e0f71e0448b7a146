package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	"github.com/corpusline/ragserver/internal/documents"
	"github.com/corpusline/ragserver/internal/rag/chunker"
	"github.com/corpusline/ragserver/internal/rag/index"
	"github.com/corpusline/ragserver/internal/rag/router"
)

const maxUploadFiles = 10
const maxUploadBytes = 50 << 20 // 50MB per file

// healthResponse is the GET /api/health payload.
type healthResponse struct {
	Status          string   `json:"status"`
	DocumentsLoaded int      `json:"documentsLoaded"`
	TotalChunks     int      `json:"totalChunks"`
	AvailableModels []string `json:"availableModels"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		DocumentsLoaded: s.idx.CountDocuments(),
		TotalChunks:     s.idx.CountChunks(),
		AvailableModels: s.gateway.AvailableProviders(r.Context()),
	})
}

type modelsResponse struct {
	Models       []string `json:"models"`
	CurrentModel string   `json:"currentModel"`
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, modelsResponse{
		Models:       s.gateway.AvailableProviders(r.Context()),
		CurrentModel: s.currentModel(),
	})
}

type setModelRequest struct {
	Model string `json:"model"`
}

type setModelResponse struct {
	Success      bool   `json:"success"`
	CurrentModel string `json:"currentModel"`
}

func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var req setModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "model is required")
		return
	}

	available := s.gateway.AvailableProviders(r.Context())
	found := false
	for _, m := range available {
		if m == req.Model {
			found = true
			break
		}
	}
	if !found {
		respondError(w, http.StatusBadRequest, "invalid_request", "model is not currently available")
		return
	}

	s.gateway.SetActive(req.Model)
	s.setCurrentModel(req.Model)
	respondJSON(w, http.StatusOK, setModelResponse{Success: true, CurrentModel: req.Model})
}

func (s *Server) currentModel() string {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	return s.activeModel
}

func (s *Server) setCurrentModel(name string) {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()
	s.activeModel = name
}

type uploadResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	DocID  string `json:"docId,omitempty"`
	Chunks int    `json:"chunks,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type uploadResponse struct {
	Processed      int            `json:"processed"`
	Failed         int            `json:"failed"`
	Results        []uploadResult `json:"results"`
	TotalDocuments int            `json:"totalDocuments"`
	TotalChunks    int            `json:"totalChunks"`
}

// handleUploadDocuments accepts up to maxUploadFiles multipart files under
// the "files" field, each under maxUploadBytes, extracts, chunks, and
// indexes each independently: one file's failure never aborts the batch.
func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadFiles * maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "could not parse multipart form")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "no files provided under the 'files' field")
		return
	}
	if len(files) > maxUploadFiles {
		files = files[:maxUploadFiles]
	}

	results := make([]uploadResult, 0, len(files))
	processed, failed := 0, 0

	for _, fh := range files {
		result := s.ingestFileHeader(r.Context(), fh)
		if result.Status == "ok" {
			processed++
		} else {
			failed++
		}
		results = append(results, result)
	}

	respondJSON(w, http.StatusOK, uploadResponse{
		Processed:      processed,
		Failed:         failed,
		Results:        results,
		TotalDocuments: s.idx.CountDocuments(),
		TotalChunks:    s.idx.CountChunks(),
	})
}

func (s *Server) ingestFileHeader(ctx context.Context, fh *multipart.FileHeader) uploadResult {
	if fh.Size > maxUploadBytes {
		return uploadResult{Name: fh.Filename, Status: "failed", Reason: "file exceeds 50MB limit"}
	}

	f, err := fh.Open()
	if err != nil {
		s.log.Error("upload open failed", map[string]any{"source": fh.Filename, "err": err.Error()})
		return uploadResult{Name: fh.Filename, Status: "failed", Reason: err.Error()}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.log.Error("upload read failed", map[string]any{"source": fh.Filename, "err": err.Error()})
		return uploadResult{Name: fh.Filename, Status: "failed", Reason: err.Error()}
	}

	// Filenames ending in .md are accepted regardless of what the browser
	// reported as the MIME type; dispatch is by extension, not content-type.
	text, meta, err := documents.Extract(fh.Filename, data)
	if err != nil {
		s.log.Error("extraction failed", map[string]any{"source": fh.Filename, "err": err.Error()})
		return uploadResult{Name: fh.Filename, Status: "failed", Reason: err.Error()}
	}

	return s.indexDocument(ctx, fh.Filename, text, meta)
}

func (s *Server) indexDocument(ctx context.Context, name, text string, meta documents.ExtractedMeta) uploadResult {
	chunks := chunker.Chunk(text, chunker.Options{ChunkSize: s.chunkSize, ChunkOverlap: s.chunkOverlap})
	docID := uuid.NewString()

	inputs := make([]index.InputChunk, len(chunks))
	for i, c := range chunks {
		inputs[i] = index.InputChunk{
			Content:    c.Text,
			Source:     meta.Source,
			Type:       meta.Type,
			Title:      meta.Title,
			ChunkIndex: c.Index,
			CharStart:  c.CharStart,
			CharEnd:    c.CharEnd,
		}
	}

	if err := s.idx.Add(ctx, docID, name, inputs); err != nil {
		// Index.Add already logs the embedder failure with doc_id/source/err.
		return uploadResult{Name: name, Status: "failed", Reason: err.Error()}
	}
	return uploadResult{Name: name, Status: "ok", DocID: docID, Chunks: len(chunks)}
}

type ingestURLRequest struct {
	URL string `json:"url"`
}

type ingestURLResponse struct {
	DocID          string `json:"docId"`
	Chunks         int    `json:"chunks"`
	TotalDocuments int    `json:"totalDocuments"`
	TotalChunks    int    `json:"totalChunks"`
}

func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), urlFetchTimeout)
	defer cancel()

	text, meta, err := documents.ExtractURL(ctx, req.URL)
	if err != nil {
		s.log.Error("url fetch failed", map[string]any{"source": req.URL, "err": err.Error()})
		respondError(w, http.StatusInternalServerError, "fetch_failed", err.Error())
		return
	}

	result := s.indexDocument(r.Context(), req.URL, text, meta)
	if result.Status != "ok" {
		respondError(w, http.StatusInternalServerError, "embedder_unavailable", result.Reason)
		return
	}

	respondJSON(w, http.StatusOK, ingestURLResponse{
		DocID:          result.DocID,
		Chunks:         result.Chunks,
		TotalDocuments: s.idx.CountDocuments(),
		TotalChunks:    s.idx.CountChunks(),
	})
}

type documentSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ChunkCount int    `json:"chunkCount"`
	AddedAt    string `json:"addedAt"`
}

type listDocumentsResponse struct {
	Documents   []documentSummary `json:"documents"`
	TotalChunks int               `json:"totalChunks"`
}

const httpTimeFormat = "2006-01-02T15:04:05Z07:00"

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.idx.ListDocuments()
	out := make([]documentSummary, len(docs))
	for i, d := range docs {
		out[i] = documentSummary{ID: d.ID, Name: d.Name, ChunkCount: d.ChunkCount, AddedAt: d.AddedAt.UTC().Format(httpTimeFormat)}
	}
	respondJSON(w, http.StatusOK, listDocumentsResponse{Documents: out, TotalChunks: s.idx.CountChunks()})
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.idx.Remove(id); err != nil {
		if errors.Is(err, index.ErrUnknownDocument) {
			respondError(w, http.StatusBadRequest, "unknown_document", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleClearDocuments(w http.ResponseWriter, r *http.Request) {
	s.idx.Clear()
	respondJSON(w, http.StatusOK, successResponse{Success: true})
}

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	Mode           string `json:"mode"`
}

type chatResponse struct {
	ConversationID    string          `json:"conversationId"`
	Answer            string          `json:"answer"`
	Mode              string          `json:"mode"`
	Sources           []router.Source `json:"sources"`
	RetrievedCount    int             `json:"retrievedCount,omitempty"`
	NoRelevantResults bool            `json:"noRelevantResults,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	mode := router.Mode(req.Mode)
	if mode == "" {
		mode = router.ModeAuto
	}

	result, err := s.router.Route(r.Context(), req.ConversationID, req.Message, mode)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{
		ConversationID:    req.ConversationID,
		Answer:            result.Answer,
		Mode:              string(result.Mode),
		Sources:           result.Sources,
		RetrievedCount:    result.RetrievedCount,
		NoRelevantResults: result.NoRelevantResults,
	})
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK"`
}

type searchResult struct {
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	Score      float64 `json:"score"`
	ChunkIndex int     `json:"chunkIndex"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	hits, err := s.idx.HybridSearch(r.Context(), req.Query, req.TopK)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	out := make([]searchResult, len(hits))
	for i, h := range hits {
		out[i] = searchResult{Content: h.Content, Source: h.Source, Score: h.Score, ChunkIndex: h.ChunkIndex}
	}
	respondJSON(w, http.StatusOK, searchResponse{Results: out})
}

type statsResponse struct {
	Documents     int    `json:"documents"`
	Chunks        int    `json:"chunks"`
	Conversations int    `json:"conversations"`
	CurrentModel  string `json:"currentModel"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, statsResponse{
		Documents:     s.idx.CountDocuments(),
		Chunks:        s.idx.CountChunks(),
		Conversations: s.history.ConversationCount(),
		CurrentModel:  s.currentModel(),
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, map[string]string{"error": kind, "message": message})
}
