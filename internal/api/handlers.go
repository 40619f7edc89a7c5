package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ecology747-sudo/gluvib/internal/store"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type offsetRequest struct {
	Offset *int `json:"offset"`
}

type sampleRequest struct {
	Metric string  `json:"metric"`
	Date   string  `json:"date"`
	Value  float64 `json:"value"`
}

type acceptedResponse struct {
	Status string `json:"status"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("write json response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg("api error")
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	_, ready := h.engine.Current()
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "snapshot": ready})
}

func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.engine.Current()
	if !ok {
		h.writeError(w, http.StatusServiceUnavailable, errors.New("no snapshot computed yet"))
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) SetOffset(w http.ResponseWriter, r *http.Request) {
	var req offsetRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Offset == nil {
		h.writeError(w, http.StatusBadRequest, errors.New("offset is required"))
		return
	}
	h.engine.ApplySelectedDayOffset(*req.Offset)
	h.Snapshot(w, r)
}

func (h *Handler) AddSample(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	err := h.samples.AddSample(r.Context(), store.SampleInput{
		Metric: req.Metric,
		Date:   req.Date,
		Value:  req.Value,
		Source: "api",
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Refresh(r.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, store.ErrNoProvider) {
			status = http.StatusConflict
		}
		h.writeError(w, status, err)
		return
	}
	h.Snapshot(w, r)
}
