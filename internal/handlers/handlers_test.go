package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/pawtrait-pals/pawtrait/internal/capture"
	"github.com/pawtrait-pals/pawtrait/internal/catalog"
	"github.com/pawtrait-pals/pawtrait/internal/config"
	"github.com/pawtrait-pals/pawtrait/internal/storage"
)

const (
	uaIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	uaDesktop = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:         "0",
		ReadTimeout:  5 * time.Second,
		HandoffQuota: capture.DefaultHandoffQuota,
		HandoffTTL:   capture.DefaultHandoffTTL,
		TabTTL:       config.DefaultTabTTL,
		UploadsDir:   t.TempDir(),
	}
}

func newTestHandler(t *testing.T, cfg *config.Config, opts ...Option) *Handler {
	t.Helper()
	uploader, err := storage.NewDiskUploader(cfg.UploadsDir, "/static/uploads/")
	if err != nil {
		t.Fatalf("Failed to create uploader: %v", err)
	}
	h := New(cfg, catalog.Default(), uploader, append([]Option{WithStaticDir(t.TempDir())}, opts...)...)
	t.Cleanup(func() { h.Close() })
	return h
}

// testClient keeps cookies like a browser tab and does not follow redirects.
type testClient struct {
	t      *testing.T
	base   string
	ua     string
	client *http.Client
}

func newTestClient(t *testing.T, h *Handler, ua string) *testClient {
	t.Helper()
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testClient{
		t:    t,
		base: srv.URL,
		ua:   ua,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *testClient) do(method, path, contentType string, body io.Reader, header ...string) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatal(err)
	}
	req.Header.Set("User-Agent", c.ua)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatal(err)
	}
	return resp, data
}

func (c *testClient) get(path string) (*http.Response, []byte) {
	return c.do(http.MethodGet, path, "", nil)
}

func (c *testClient) upload(path string, files ...part) (*http.Response, []byte) {
	body, contentType := multipartBody(c.t, files...)
	return c.do(http.MethodPost, path, contentType, body)
}

func (c *testClient) surface() surfaceResponse {
	c.t.Helper()
	resp, body := c.get("/api/surface")
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("Expected 200 from /api/surface, got %d", resp.StatusCode)
	}
	return decodeSurface(c.t, body)
}

type part struct {
	field, name, mimeType string
	data                  []byte
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.name+`"`)
		header.Set("Content-Type", p.mimeType)
		w, err := mw.CreatePart(header)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(p.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeSurface(t *testing.T, body []byte) surfaceResponse {
	t.Helper()
	var resp surfaceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("Failed to decode surface response %q: %v", body, err)
	}
	return resp
}

func photo(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x ^ y), G: uint8(x * 7), B: uint8(y * 3), A: 255})
		}
	}
	return img
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, photo(w, h), &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, photo(w, h)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRemoteCaptureFlow(t *testing.T) {
	original := testJPEG(t, 2400, 1800)
	encoded := capture.NewEncodedImage("image/jpeg", original)

	cfg := testConfig(t)
	cfg.HandoffQuota = encoded.Size() - 1
	h := newTestHandler(t, cfg)
	c := newTestClient(t, h, uaIPhone)

	resp, body := c.get("/create")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from /create, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `data-strategy="remote"`) {
		t.Errorf("Expected remote strategy on iPhone, got %s", body)
	}
	if !strings.Contains(string(body), "/capture?returnTo=%2fcreate") && !strings.Contains(string(body), "/capture?returnTo=%2Fcreate") {
		t.Errorf("Expected link to capture page, got %s", body)
	}

	resp, _ = c.get("/capture?returnTo=/create")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from /capture, got %d", resp.StatusCode)
	}

	resp, _ = c.upload("/capture?returnTo=/create", part{"file", "IMG_0001.jpg", "image/jpeg", original})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("Expected 303 from capture submit, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/create" {
		t.Errorf("Expected redirect to /create, got %s", loc)
	}

	resp, body = c.get("/create")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from /create, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `data-state="ready"`) || !strings.Contains(string(body), "data:image/jpeg;base64,") {
		t.Errorf("Expected adopted photo on /create, got %.400s", body)
	}
	if !strings.Contains(string(body), `draggable="false"`) {
		t.Error("Expected preview to disable native dragging")
	}

	snap := c.surface()
	if snap.State != capture.StateReady || snap.Image == nil {
		t.Fatalf("Expected ready surface with image, got %+v", snap.Snapshot)
	}
	if max(snap.Image.Width, snap.Image.Height) != capture.MaxEdge {
		t.Errorf("Expected longest edge %d, got %dx%d", capture.MaxEdge, snap.Image.Width, snap.Image.Height)
	}
	if snap.Image.MIMEType != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", snap.Image.MIMEType)
	}

	rec, err := h.handoffStore.TakeAndClear(context.Background(), tabCookieValue(t, c))
	if err != nil || rec != nil {
		t.Errorf("Expected hand-off record to be consumed, got %+v, %v", rec, err)
	}
}

func tabCookieValue(t *testing.T, c *testClient) string {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, c.base, nil)
	for _, ck := range c.client.Jar.Cookies(req.URL) {
		if ck.Name == tabCookie {
			return ck.Value
		}
	}
	t.Fatal("No tab cookie set")
	return ""
}

func TestRemoteCaptureRejectsNonImage(t *testing.T) {
	h := newTestHandler(t, testConfig(t))
	c := newTestClient(t, h, uaIPhone)

	resp, body := c.upload("/capture?returnTo=/create", part{"file", "notes.txt", "text/plain", []byte("hello")})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "Please choose an image file.") {
		t.Errorf("Expected rejection message on capture page, got %s", body)
	}
}

func TestRemoteCaptureSanitizesReturnTo(t *testing.T) {
	h := newTestHandler(t, testConfig(t))
	c := newTestClient(t, h, uaIPhone)

	resp, _ := c.upload("/capture?returnTo=https://evil.example/", part{"file", "pet.png", "image/png", testPNG(t, 16, 16)})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != capture.DefaultReturnTo {
		t.Errorf("Expected redirect to %s, got %s", capture.DefaultReturnTo, loc)
	}
}

func TestInlineSelect(t *testing.T) {
	h := newTestHandler(t, testConfig(t))
	c := newTestClient(t, h, uaDesktop)

	_, body := c.get("/api/surface/browse")
	var action capture.Action
	if err := json.Unmarshal(body, &action); err != nil {
		t.Fatal(err)
	}
	if action.Kind != capture.ActionInline || !action.ResetInput {
		t.Errorf("Expected inline action with input reset, got %+v", action)
	}

	resp, body := c.upload("/api/surface/select", part{"file", "rex.png", "image/png", testPNG(t, 40, 30)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	snap := decodeSurface(t, body)
	if snap.State != capture.StateReady {
		t.Errorf("Expected ready, got %s", snap.State)
	}
	if snap.Image == nil || !strings.HasPrefix(snap.Image.DataURL, "data:image/png;base64,") {
		t.Errorf("Expected PNG data URL, got %+v", snap.Image)
	}
	if snap.Strategy != "inline" {
		t.Errorf("Expected inline strategy, got %s", snap.Strategy)
	}

	resp, body = c.do(http.MethodDelete, "/api/surface", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if snap := decodeSurface(t, body); snap.State != capture.StateEmpty || snap.Image != nil {
		t.Errorf("Expected empty surface after clear, got %+v", snap.Snapshot)
	}
}

func TestDropNonImage(t *testing.T) {
	h := newTestHandler(t, testConfig(t))
	c := newTestClient(t, h, uaDesktop)

	c.do(http.MethodPost, "/api/surface/dragenter", "", nil)
	if snap := c.surface(); snap.State != capture.StateDragging {
		t.Fatalf("Expected dragging, got %s", snap.State)
	}

	_, body := c.upload("/api/surface/drop", part{"files", "notes.txt", "text/plain", []byte("hello")})
	snap := decodeSurface(t, body)
	if snap.State != capture.StateEmpty {
		t.Errorf("Expected empty, got %s", snap.State)
	}
	if snap.Notification == nil {
		t.Fatal("Expected a notification")
	}
	if snap.Notification.Level != capture.LevelError || !snap.Notification.Dismissible {
		t.Errorf("Expected dismissible error notification, got %+v", snap.Notification)
	}
	if snap.Notification.Message != "Please choose an image file." {
		t.Errorf("Unexpected message %q", snap.Notification.Message)
	}

	// Drained notifications are not repeated.
	if again := c.surface(); again.Notification != nil {
		t.Errorf("Expected no pending notification, got %+v", again.Notification)
	}
}

func TestDropUsesFirstFile(t *testing.T) {
	h := newTestHandler(t, testConfig(t))
	c := newTestClient(t, h, uaDesktop)

	_, body := c.upload("/api/surface/drop",
		part{"files", "a.png", "image/png", testPNG(t, 8, 8)},
		part{"files", "b.txt", "text/plain", []byte("ignored")},
	)
	snap := decodeSurface(t, body)
	if snap.State != capture.StateReady || snap.Notification != nil {
		t.Errorf("Expected ready without notification, got %+v", snap)
	}
}

func TestDragLeave(t *testing.T) {
	h := newTestHandler(t, testConfig(t))
	c := newTestClient(t, h, uaDesktop)

	c.do(http.MethodPost, "/api/surface/dragenter", "", nil)
	_, body := c.do(http.MethodPost, "/api/surface/dragleave", "", nil)
	if snap := decodeSurface(t, body); snap.State != capture.StateEmpty {
		t.Errorf("Expected empty after drag leave, got %s", snap.State)
	}
}

// The create page reports drag edges so the server-side surface tracks them.
func TestCreatePageReportsDragEvents(t *testing.T) {
	h := newTestHandler(t, testConfig(t))
	c := newTestClient(t, h, uaDesktop)

	resp, body := c.get("/create")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	for _, path := range []string{"/api/surface/dragenter", "/api/surface/dragleave", "/api/surface/drop"} {
		if !strings.Contains(string(body), path) {
			t.Errorf("Expected create page to post to %s", path)
		}
	}

	c.do(http.MethodPost, "/api/surface/dragenter", "", nil)
	if got := c.surface().State; got != capture.StateDragging {
		t.Errorf("Expected dragging after drag enter, got %s", got)
	}
}

func TestUploadAPI(t *testing.T) {
	pngData := testPNG(t, 10, 10)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngData)
	}))
	defer remote.Close()

	h := newTestHandler(t, testConfig(t))
	c := newTestClient(t, h, uaDesktop)

	t.Run("file", func(t *testing.T) {
		resp, body := c.upload("/api/upload", part{"file", "cat.png", "image/png", pngData})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
		}
		var out struct {
			Image capture.EncodedImage `json:"image"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatal(err)
		}
		if out.Image.Width != 10 || !strings.HasPrefix(out.Image.DataURL, "data:image/png;base64,") {
			t.Errorf("Unexpected image %+v", out.Image)
		}
	})

	t.Run("not an image", func(t *testing.T) {
		resp, body := c.upload("/api/upload", part{"file", "notes.txt", "text/plain", []byte("hi")})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", resp.StatusCode)
		}
		var out notificationResponse
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatal(err)
		}
		if out.Notification.Level != capture.LevelError {
			t.Errorf("Expected error notification, got %+v", out.Notification)
		}
	})

	t.Run("url", func(t *testing.T) {
		resp, body := c.do(http.MethodPost, "/api/upload", "application/json", strings.NewReader(`{"image_url":"`+remote.URL+`/cat.png"}`))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
		}
	})

	t.Run("bad url", func(t *testing.T) {
		resp, _ := c.do(http.MethodPost, "/api/upload", "application/json", strings.NewReader(`{"image_url":"ftp://example.com/a.png"}`))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		resp, _ := c.do(http.MethodPost, "/api/upload", "application/json", strings.NewReader(`{}`))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestCatalogEndpoints(t *testing.T) {
	h := newTestHandler(t, testConfig(t))
	c := newTestClient(t, h, uaDesktop)

	tests := []struct {
		path     string
		want     int
		contains string
	}{
		{"/api/styles?species=cat", http.StatusOK, "ukiyo-e"},
		{"/api/styles?species=fish", http.StatusBadRequest, "unknown species"},
		{"/api/breeds?species=dog&q=retr", http.StatusOK, "Labrador Retriever"},
		{"/api/breeds?species=dog&q=zzz", http.StatusOK, "[]"},
		{"/api/styles/preview/Pop%20Art", http.StatusFound, ""},
		{"/api/styles/preview/Nope", http.StatusNotFound, ""},
		{"/healthcheck", http.StatusOK, "OK"},
		{"/metrics", http.StatusOK, "pawtrait_"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := c.get(tt.path)
			if resp.StatusCode != tt.want {
				t.Fatalf("Expected %d, got %d", tt.want, resp.StatusCode)
			}
			if tt.contains != "" && !strings.Contains(string(body), tt.contains) {
				t.Errorf("Expected body to contain %q, got %s", tt.contains, body)
			}
		})
	}

	resp, _ := c.get("/api/styles/preview/Pop%20Art")
	if loc := resp.Header.Get("Location"); loc != "/static/previews/pop-art.jpg" {
		t.Errorf("Unexpected preview location %s", loc)
	}
}
