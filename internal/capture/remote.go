package capture

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pawtrait-pals/pawtrait/internal/metrics"
)

// Handoff runs the capture page side of a cross-page capture and the
// returning page's pickup.
type Handoff struct {
	Store   HandoffStore
	Encoder ImageEncoder
	MaxEdge int
	Quality int
}

// HandoffResult describes a completed capture page submission.
type HandoffResult struct {
	Destination string
	// Image is the stored image, nil when Dropped.
	Image   *EncodedImage
	Resized bool
	// Dropped is set when even the downscaled image could not be stored.
	Dropped bool
}

// NewHandoff wires a hand-off flow with the default resize policy.
func NewHandoff(store HandoffStore, encoder ImageEncoder) *Handoff {
	return &Handoff{
		Store:   store,
		Encoder: encoder,
		MaxEdge: MaxEdge,
		Quality: FallbackQuality,
	}
}

// Complete validates and encodes file, then records it for tabID together
// with the return destination. A quota overflow is retried once with a
// downscaled copy; a second failure is logged and reported as Dropped.
func (h *Handoff) Complete(ctx context.Context, tabID string, file CandidateFile, returnTo string) (*HandoffResult, error) {
	dest := SanitizeReturnTo(returnTo)

	if err := Validate(file); err != nil {
		recordRejection("remote", err)
		return nil, err
	}

	img, err := h.Encoder.Encode(ctx, file)
	if err != nil {
		recordRejection("remote", err)
		return nil, err
	}

	result := &HandoffResult{Destination: dest}
	err = h.Store.Put(ctx, tabID, HandoffRecord{PendingImage: *img, ReturnTo: dest})
	if err == nil {
		metrics.HandoffOps.WithLabelValues("put", "ok").Inc()
		metrics.Uploads.WithLabelValues("remote", "ok").Inc()
		result.Image = img
		return result, nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		metrics.HandoffOps.WithLabelValues("put", "error").Inc()
		return h.drop(result, tabID, err), nil
	}

	metrics.HandoffOps.WithLabelValues("put", "quota_exceeded").Inc()
	slog.Info("Handoff quota exceeded, downscaling image", "tab_id", tabID, "size", img.Size(), "width", img.Width, "height", img.Height)

	data, err := img.Bytes()
	if err != nil {
		return h.drop(result, tabID, err), nil
	}
	small, err := Downscale(data, h.MaxEdge, h.Quality)
	if err != nil {
		return h.drop(result, tabID, err), nil
	}
	metrics.FallbackResizes.Inc()

	if err := h.Store.Put(ctx, tabID, HandoffRecord{PendingImage: *small, ReturnTo: dest}); err != nil {
		metrics.HandoffOps.WithLabelValues("put", "error").Inc()
		return h.drop(result, tabID, err), nil
	}

	metrics.HandoffOps.WithLabelValues("put", "ok").Inc()
	metrics.Uploads.WithLabelValues("remote", "resized").Inc()
	result.Image = small
	result.Resized = true
	return result, nil
}

func (h *Handoff) drop(result *HandoffResult, tabID string, err error) *HandoffResult {
	slog.Warn("Unable to hand off captured image", "tab_id", tabID, "err", err)
	metrics.DroppedHandoffs.Inc()
	metrics.Uploads.WithLabelValues("remote", "dropped").Inc()
	result.Dropped = true
	return result
}

// Resume takes the pending record for tabID, if any. A page opened with
// nothing pending gets (nil, nil).
func (h *Handoff) Resume(ctx context.Context, tabID string) (*HandoffRecord, error) {
	rec, err := h.Store.TakeAndClear(ctx, tabID)
	switch {
	case err != nil:
		metrics.HandoffOps.WithLabelValues("take", "error").Inc()
		return nil, err
	case rec == nil:
		metrics.HandoffOps.WithLabelValues("take", "empty").Inc()
		return nil, nil
	}
	metrics.HandoffOps.WithLabelValues("take", "ok").Inc()
	if rec.ReturnTo == "" {
		rec.ReturnTo = DefaultReturnTo
	}
	return rec, nil
}

func recordRejection(path string, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		metrics.Rejections.WithLabelValues(verr.Reason()).Inc()
		metrics.Uploads.WithLabelValues(path, "rejected").Inc()
		return
	}
	metrics.Uploads.WithLabelValues(path, "read_failure").Inc()
}
