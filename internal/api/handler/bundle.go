package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/albapepper/tour-bundler/internal/api/respond"
	"github.com/albapepper/tour-bundler/internal/cache"
	"github.com/albapepper/tour-bundler/internal/dataset"
	"github.com/albapepper/tour-bundler/internal/notifications"
)

type recordDTO struct {
	ReceiverID         string `json:"receiver_id"`
	NotificationSent   string `json:"notification_sent"`
	TimestampFirstTour string `json:"timestamp_first_tour"`
	Tours              int    `json:"tours"`
	Message            string `json:"message"`
	MaxAwaitSeconds    int64  `json:"max_await_seconds"`
}

type bundleResponse struct {
	Policy  notifications.Policy `json:"policy"`
	Events  int                  `json:"events"`
	Bundles int                  `json:"bundles"`
	Records []recordDTO          `json:"records"`
}

// PostBundle previews the notifications for an uploaded events CSV.
// The body uses the batch input format: timestamp,user_id,friend_id,friend_name
// without a header. ?policy= selects exact or predict.
func (h *Handler) PostBundle(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("policy")
	if raw == "" {
		raw = h.cfg.Policy
	}
	policy, err := notifications.ParsePolicy(raw)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_POLICY", "policy must be exact or predict", err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.WriteError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE",
				fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		respond.WriteError(w, http.StatusBadRequest, "READ_FAILED", "could not read request body")
		return
	}

	cacheKey := cache.Key([]byte(policy), []byte(fmt.Sprintf("%+v", h.thresholds)), []byte(h.cfg.Timezone), body)
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLPreview, true)
		return
	}

	events, err := dataset.Read(bytes.NewReader(body), h.cfg.Location)
	if err != nil {
		h.metrics.Fail("read")
		if errors.Is(err, dataset.ErrMalformedInput) {
			respond.WriteErrorDetail(w, http.StatusUnprocessableEntity, "MALFORMED_INPUT", "events CSV could not be parsed", err.Error())
			return
		}
		respond.WriteError(w, http.StatusBadRequest, "READ_FAILED", "could not read events")
		return
	}

	res, err := notifications.Run(r.Context(), events, notifications.Options{
		Policy:     policy,
		Thresholds: h.thresholds,
		Workers:    h.cfg.Workers,
	}, h.logger)
	if err != nil {
		h.metrics.Fail("bundle")
		h.logger.Error("preview bundling failed", "policy", policy, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "BUNDLE_FAILED", "bundling failed")
		return
	}
	h.metrics.Observe(res)

	data, err := json.Marshal(toResponse(res))
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "could not encode response")
		return
	}
	etag := h.cache.Set(cacheKey, data, cache.TTLPreview)
	respond.WriteJSON(w, data, etag, cache.TTLPreview, false)
}

func toResponse(res *notifications.Result) bundleResponse {
	out := bundleResponse{
		Policy:  res.Policy,
		Events:  res.Events,
		Bundles: res.Bundles,
		Records: make([]recordDTO, 0, len(res.Records)),
	}
	for _, r := range res.Records {
		out.Records = append(out.Records, recordDTO{
			ReceiverID:         r.ReceiverID,
			NotificationSent:   r.NotificationSent.Format(time.RFC3339),
			TimestampFirstTour: r.TimestampFirstTour.Format(time.RFC3339),
			Tours:              r.Tours,
			Message:            r.Message,
			MaxAwaitSeconds:    int64(r.MaxAwait.Seconds()),
		})
	}
	return out
}
