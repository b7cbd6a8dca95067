package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"fractal-ledger/fault"
	"fractal-ledger/ledger"
	"fractal-ledger/logger"
	"fractal-ledger/models"
)

// maximum accepted request body
const maxBodyBytes = 1 << 20

// Handler contains the HTTP handlers for the ledger API endpoints
type Handler struct {
	Ledger *ledger.Ledger
}

// NewHandler creates and returns a new Handler instance
func NewHandler(l *ledger.Ledger) *Handler {
	return &Handler{Ledger: l}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the fault class of err to a status code
func writeError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case fault.IsErrInvalid(err):
		status = http.StatusBadRequest
	case fault.IsErrNotFound(err):
		status = http.StatusNotFound
	case fault.IsErrExists(err):
		status = http.StatusConflict
	case fault.IsErrProcess(err):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		logger.Logger.Error(msg, zap.Error(err))
	} else {
		logger.Logger.Warn(msg, zap.Error(err))
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
	})
}

func badRequest(w http.ResponseWriter, msg string, err error) {
	logger.Logger.Error(msg, zap.Error(err))
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": "Invalid request payload",
	})
}

func levelParam(r *http.Request) (models.Level, error) {
	n, err := strconv.Atoi(mux.Vars(r)["level"])
	return models.Level(n), err
}

// GetSegments returns the ids and coordinates of a level
func (h *Handler) GetSegments(w http.ResponseWriter, r *http.Request) {
	level, err := levelParam(r)
	if err != nil {
		badRequest(w, "Failed to parse level", err)
		return
	}
	segments, err := h.Ledger.Segments(level)
	if err != nil {
		writeError(w, "Failed to compute segments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"level":    level,
		"count":    len(segments),
		"segments": segments,
	})
}

type initializeRequest struct {
	Level *models.Level `json:"level"`
}

// InitializeLevel registers every segment of a level as unresolved
func (h *Handler) InitializeLevel(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Level == nil {
		badRequest(w, "Failed to decode initialize request", err)
		return
	}
	count, err := h.Ledger.InitializeLevel(*req.Level)
	if err != nil {
		writeError(w, "Failed to initialise level", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Level initialised successfully",
		"level":   *req.Level,
		"count":   count,
	})
}

// ResolveSegment stores the raw JSON body as the segment payload
func (h *Handler) ResolveSegment(w http.ResponseWriter, r *http.Request) {
	id := models.SegmentID(mux.Vars(r)["id"])
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !json.Valid(body) {
		badRequest(w, "Failed to read resolve payload", err)
		return
	}
	state, err := h.Ledger.Resolve(id, json.RawMessage(body))
	if err != nil {
		writeError(w, "Failed to resolve segment", err)
		return
	}
	logger.Logger.Info("Resolved segment", zap.String("segment_id", string(id)))
	writeJSON(w, http.StatusOK, state)
}

// ResolveFromOracle resolves a segment with a fresh oracle reading
func (h *Handler) ResolveFromOracle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	state, err := h.Ledger.ResolveFromOracle(r.Context(), models.SegmentID(vars["id"]), vars["source"])
	if err != nil {
		writeError(w, "Failed to resolve segment from oracle", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GetSegment returns the state of one segment
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	id := models.SegmentID(mux.Vars(r)["id"])
	state, found, err := h.Ledger.Segment(id)
	if err != nil {
		writeError(w, "Failed to get segment", err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "segment " + string(id) + " not found",
		})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GetAllSegments returns every segment state in insertion order
func (h *Handler) GetAllSegments(w http.ResponseWriter, r *http.Request) {
	states, err := h.Ledger.SegmentStates()
	if err != nil {
		writeError(w, "Failed to list segments", err)
		return
	}
	stats, err := h.Ledger.SegmentStats()
	if err != nil {
		writeError(w, "Failed to count segments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":    stats,
		"segments": states,
	})
}

// ExportSegments streams a zstd compressed snapshot
func (h *Handler) ExportSegments(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", `attachment; filename="segments.jsonl.zst"`)
	if err := h.Ledger.Export(w); err != nil {
		logger.Logger.Error("Failed to export segments", zap.Error(err))
	}
}

// GetScarcity returns the scarcity of a level
func (h *Handler) GetScarcity(w http.ResponseWriter, r *http.Request) {
	level, err := levelParam(r)
	if err != nil {
		badRequest(w, "Failed to parse level", err)
		return
	}
	scarcity, err := h.Ledger.Scarcity(level)
	if err != nil {
		writeError(w, "Failed to compute scarcity", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"level":    level,
		"scarcity": scarcity,
	})
}

type mineRequest struct {
	Data             string        `json:"data"`
	TargetDifficulty int           `json:"target_difficulty"`
	Level            *models.Level `json:"level,omitempty"`
}

// Mine searches for a proof; an exhausted search is reported with found=false
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	var req mineRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "Failed to decode mine request", err)
		return
	}
	proof, err := h.Ledger.Mine(r.Context(), req.Data, req.TargetDifficulty, req.Level)
	if err != nil {
		writeError(w, "Failed to mine", err)
		return
	}
	writeJSON(w, http.StatusOK, proof)
}

type mineSegmentRequest struct {
	TargetDifficulty int `json:"target_difficulty"`
}

// MineSegment mines at the segment's depth and resolves it with the proof
func (h *Handler) MineSegment(w http.ResponseWriter, r *http.Request) {
	var req mineSegmentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "Failed to decode mine request", err)
		return
	}
	proof, err := h.Ledger.MineSegment(r.Context(), models.SegmentID(mux.Vars(r)["id"]), req.TargetDifficulty)
	if err != nil {
		writeError(w, "Failed to mine segment", err)
		return
	}
	writeJSON(w, http.StatusOK, proof)
}

// Genesis performs the genesis allocation
func (h *Handler) Genesis(w http.ResponseWriter, r *http.Request) {
	report, err := h.Ledger.Genesis()
	if err != nil {
		writeError(w, "Failed genesis allocation", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type burnRequest struct {
	Amount float64 `json:"amount"`
}

// Burn triple burns tokens from the treasury
func (h *Handler) Burn(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "Failed to decode burn request", err)
		return
	}
	state, err := h.Ledger.Burn(req.Amount)
	if err != nil {
		writeError(w, "Failed to burn", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Tokens burned successfully",
		"contract": state,
	})
}

type dividendRequest struct {
	Holders []models.Holder `json:"holders"`
}

// Dividends pays decayed dividends to the listed holders
func (h *Handler) Dividends(w http.ResponseWriter, r *http.Request) {
	var req dividendRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "Failed to decode dividend request", err)
		return
	}
	total, err := h.Ledger.PayDividends(req.Holders)
	if err != nil {
		writeError(w, "Failed to distribute dividends", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_distributed": total,
	})
}

// GetTreasury returns the treasury contract and running totals
func (h *Handler) GetTreasury(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Ledger.Treasury())
}

// GetContracts lists the deployed contract ids
func (h *Handler) GetContracts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"contracts": h.Ledger.Contracts(),
	})
}

// GetContract returns the state of one contract
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	state, err := h.Ledger.Contract(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "Failed to get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type deployRequest struct {
	ID      string  `json:"id"`
	Balance float64 `json:"balance"`
}

// DeployContract deploys a contract with the built-in transitions
func (h *Handler) DeployContract(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "Failed to decode deploy request", err)
		return
	}
	state, err := h.Ledger.DeployContract(req.ID, req.Balance)
	if err != nil {
		writeError(w, "Failed to deploy contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":    req.ID,
		"state": state,
	})
}

type executeRequest struct {
	Args []interface{} `json:"args"`
}

// ExecuteContract runs a named transition on a contract
func (h *Handler) ExecuteContract(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "Failed to decode execute request", err)
		return
	}
	vars := mux.Vars(r)
	state, err := h.Ledger.ExecuteContract(vars["id"], vars["function"], req.Args...)
	if err != nil {
		writeError(w, "Failed to execute contract", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
