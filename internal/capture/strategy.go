package capture

import (
	"net/url"
	"strings"
)

// CapturePath is the minimal page used for remote capture.
const CapturePath = "/capture"

// remoteCaptureDevices are user-agent markers of mobile browsers that may
// discard the page while the native picker is open.
var remoteCaptureDevices = []string{"iPhone", "iPad", "iPod"}

// ShouldUseRemoteCapture reports whether capture must happen on a separate
// page for the platform identified by userAgent.
func ShouldUseRemoteCapture(userAgent string) bool {
	for _, device := range remoteCaptureDevices {
		if strings.Contains(userAgent, device) {
			return true
		}
	}
	return false
}

// ActionKind tells the page how to start a capture.
type ActionKind string

const (
	// ActionInline opens the in-page file input.
	ActionInline ActionKind = "inline"
	// ActionNavigate sends the whole page to the capture page.
	ActionNavigate ActionKind = "navigate"
)

// Action is the result of starting a "choose photo" or "replace photo" gesture.
type Action struct {
	Kind ActionKind `json:"kind"`
	URL  string     `json:"url,omitempty"`
	// ResetInput asks the page to clear the file input after each selection
	// so picking the same file twice still fires a change event.
	ResetInput bool `json:"reset_input,omitempty"`
}

// CaptureStrategy decides how a capture gesture is carried out.
type CaptureStrategy interface {
	Name() string
	Begin(returnTo string) Action
}

// InlineCapture uses an in-page file input overlay.
type InlineCapture struct{}

func (InlineCapture) Name() string { return string(ActionInline) }

func (InlineCapture) Begin(string) Action {
	return Action{Kind: ActionInline, ResetInput: true}
}

// RemoteCapture navigates to the dedicated capture page.
type RemoteCapture struct{}

func (RemoteCapture) Name() string { return "remote" }

func (RemoteCapture) Begin(returnTo string) Action {
	q := url.Values{}
	q.Set("returnTo", SanitizeReturnTo(returnTo))
	return Action{Kind: ActionNavigate, URL: CapturePath + "?" + q.Encode()}
}

// SelectStrategy picks the capture strategy for a user agent.
func SelectStrategy(userAgent string) CaptureStrategy {
	if ShouldUseRemoteCapture(userAgent) {
		return RemoteCapture{}
	}
	return InlineCapture{}
}
