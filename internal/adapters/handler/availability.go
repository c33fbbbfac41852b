package handler

import (
	"net/http"
	"strconv"
	"time"
)

// HandleAvailability answers GET /availability?floor=1&start=...&end=... with RFC 3339 times.
func (h *Handler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	floor, err := strconv.Atoi(q.Get("floor"))
	if err != nil || floor <= 0 {
		respondWithError(w, invalidRequest("floor must be a positive integer"))
		return
	}
	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		respondWithError(w, invalidRequest("start must be an RFC 3339 timestamp"))
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		respondWithError(w, invalidRequest("end must be an RFC 3339 timestamp"))
		return
	}

	occ, err := h.availability.CheckAvailability(r.Context(), floor, start.UTC(), end.UTC())
	if err != nil {
		respondWithError(w, err)
		return
	}

	resp := AvailabilityResponse{Floor: occ.Floor, Occupied: occ.Occupied, Blocked: occ.Blocked}
	if resp.Occupied == nil {
		resp.Occupied = []int64{}
	}
	if resp.Blocked == nil {
		resp.Blocked = []int64{}
	}
	respondWithJSON(w, http.StatusOK, resp)
}
