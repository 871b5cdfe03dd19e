package capture

import (
	"context"
	"errors"
	"sync"

	"github.com/pawtrait-pals/pawtrait/internal/metrics"
)

// ErrStale is returned when a read finished after a newer selection or a
// clear superseded it. Its result is discarded.
var ErrStale = errors.New("capture superseded by a newer selection")

// State is the upload session state of a Surface.
type State string

const (
	StateEmpty      State = "empty"
	StateDragging   State = "dragging"
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateRejected   State = "rejected"
)

// Snapshot is a point-in-time copy of a Surface for rendering.
type Snapshot struct {
	State    State         `json:"state"`
	Image    *EncodedImage `json:"image,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Strategy string        `json:"strategy"`
}

// Surface is the state behind one upload control: drag and drop, browse,
// replace and remove. Each accepted file gets a generation token; a read
// that completes with an outdated token is dropped.
type Surface struct {
	mu         sync.Mutex
	state      State
	beforeDrag State
	image      *EncodedImage
	reason     string
	generation uint64

	encoder       ImageEncoder
	strategy      CaptureStrategy
	notifier      Notifier
	onImageUpload func(dataURL string)
	onClear       func()
}

// SurfaceOption configures a Surface.
type SurfaceOption func(*Surface)

// WithNotifier routes user notifications to n.
func WithNotifier(n Notifier) SurfaceOption {
	return func(s *Surface) {
		s.notifier = n
	}
}

// OnImageUpload registers the callback fired once per successful capture.
func OnImageUpload(fn func(dataURL string)) SurfaceOption {
	return func(s *Surface) {
		s.onImageUpload = fn
	}
}

// OnClear registers the callback fired when the user removes the image.
func OnClear(fn func()) SurfaceOption {
	return func(s *Surface) {
		s.onClear = fn
	}
}

// NewSurface returns an empty surface using strategy for browse gestures.
func NewSurface(strategy CaptureStrategy, encoder ImageEncoder, opts ...SurfaceOption) *Surface {
	s := &Surface{
		state:    StateEmpty,
		encoder:  encoder,
		strategy: strategy,
		notifier: NotifierFunc(func(Notification) {}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DragEnter shows the drop target. It has no other effect.
func (s *Surface) DragEnter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDragging || s.state == StateProcessing {
		return
	}
	s.beforeDrag = s.state
	s.state = StateDragging
}

// DragOver is DragEnter repeated while the pointer moves.
func (s *Surface) DragOver() {
	s.DragEnter()
}

// DragLeave hides the drop target.
func (s *Surface) DragLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDragging {
		s.state = s.beforeDrag
	}
}

// Drop accepts the first dropped file and ignores the rest.
func (s *Surface) Drop(ctx context.Context, files []CandidateFile) error {
	if len(files) == 0 {
		s.DragLeave()
		return nil
	}
	return s.accept(ctx, files[0], "drop")
}

// Select accepts a file chosen through the in-page picker.
func (s *Surface) Select(ctx context.Context, file CandidateFile) error {
	return s.accept(ctx, file, "inline")
}

// Browse starts a "choose photo" or "replace photo" gesture.
func (s *Surface) Browse(returnTo string) Action {
	return s.strategy.Begin(returnTo)
}

// Adopt installs an image that arrived through the hand-off store.
func (s *Surface) Adopt(img *EncodedImage) {
	s.mu.Lock()
	s.generation++
	s.image = img
	s.state = StateReady
	s.reason = ""
	cb := s.onImageUpload
	s.mu.Unlock()

	if cb != nil {
		cb(img.DataURL)
	}
}

// Clear discards the current image. It does not touch the hand-off store.
func (s *Surface) Clear() {
	s.mu.Lock()
	s.generation++
	s.image = nil
	s.state = StateEmpty
	s.reason = ""
	cb := s.onClear
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Snapshot returns the current state.
func (s *Surface) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:    s.state,
		Image:    s.image,
		Reason:   s.reason,
		Strategy: s.strategy.Name(),
	}
}

func (s *Surface) accept(ctx context.Context, file CandidateFile, path string) error {
	token, err := s.begin(file, path)
	if err != nil {
		return err
	}
	img, err := s.encoder.Encode(ctx, file)
	return s.finish(token, img, err, path)
}

func (s *Surface) begin(file CandidateFile, path string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDragging {
		s.state = s.beforeDrag
	}
	if err := Validate(file); err != nil {
		recordRejection(path, err)
		s.notifyError(err)
		return 0, err
	}

	s.generation++
	s.state = StateProcessing
	return s.generation, nil
}

func (s *Surface) finish(token uint64, img *EncodedImage, err error, path string) error {
	s.mu.Lock()
	if token != s.generation {
		s.mu.Unlock()
		return ErrStale
	}

	if err != nil {
		recordRejection(path, err)
		var verr *ValidationError
		switch {
		case s.image != nil:
			s.state = StateReady
		case errors.As(err, &verr):
			s.state = StateEmpty
		default:
			s.state = StateRejected
			s.reason = readFailureMessage
		}
		s.notifyError(err)
		s.mu.Unlock()
		return err
	}

	s.image = img
	s.state = StateReady
	s.reason = ""
	cb := s.onImageUpload
	s.mu.Unlock()

	metrics.Uploads.WithLabelValues(path, "ok").Inc()
	if cb != nil {
		cb(img.DataURL)
	}
	return nil
}

func (s *Surface) notifyError(err error) {
	s.notifier.Notify(NotificationFor(err))
}
