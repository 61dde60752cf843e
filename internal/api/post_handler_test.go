package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avdeev/postpilot/internal/domain"
	"github.com/avdeev/postpilot/internal/gen"
	"github.com/avdeev/postpilot/internal/instagram"
	"github.com/avdeev/postpilot/internal/media"
	"github.com/avdeev/postpilot/internal/repo"
)

type fakeQueue struct {
	posts    []domain.ScheduledPost
	enqueued []*domain.ScheduledPost
	claimed  []string
	claimErr error
}

func (q *fakeQueue) Enqueue(_ context.Context, post *domain.ScheduledPost) error {
	q.enqueued = append(q.enqueued, post)
	return nil
}

func (q *fakeQueue) ListPosts(_ context.Context) ([]domain.ScheduledPost, error) {
	return q.posts, nil
}

func (q *fakeQueue) Claim(_ context.Context, id string) (*domain.ScheduledPost, error) {
	if q.claimErr != nil {
		return nil, q.claimErr
	}
	q.claimed = append(q.claimed, id)
	return &domain.ScheduledPost{ID: id}, nil
}

type fakeHistory struct {
	records []domain.HistoryRecord
	written []*domain.HistoryRecord
}

func (h *fakeHistory) WriteRecord(_ context.Context, rec *domain.HistoryRecord) error {
	h.written = append(h.written, rec)
	return nil
}

func (h *fakeHistory) List(_ context.Context, _ int) ([]domain.HistoryRecord, error) {
	return h.records, nil
}

type fakePublisher struct {
	loginErr   error
	restoreErr error
	publishErr error
	mediaID    string
	loggedIn   []string
	loggedOut  int
}

func (p *fakePublisher) Login(_ context.Context, username, _ string) error {
	if p.loginErr != nil {
		return p.loginErr
	}
	p.loggedIn = append(p.loggedIn, username)
	return nil
}

func (p *fakePublisher) Logout() error {
	p.loggedOut++
	return nil
}

func (p *fakePublisher) RestoreSession(_ context.Context) (any, error) {
	if p.restoreErr != nil {
		return nil, p.restoreErr
	}
	return &instagram.Session{Username: "testuser", SessionID: "sid"}, nil
}

func (p *fakePublisher) Verify(_ context.Context, _ any) error {
	return nil
}

func (p *fakePublisher) PublishMedia(_ context.Context, _ any, _ string, _, _ []string) (string, error) {
	if p.publishErr != nil {
		return "", p.publishErr
	}
	return p.mediaID, nil
}

type fakeSessions struct {
	session *instagram.Session
}

func (s *fakeSessions) Load() (*instagram.Session, error) {
	if s.session == nil {
		return nil, instagram.ErrAuthUnavailable
	}
	return s.session, nil
}

type fakeSessionCache struct {
	resets int
}

func (c *fakeSessionCache) ResetSession() { c.resets++ }

type fakeTextGen struct {
	prompt  string
	caption string
	err     error
}

func (g *fakeTextGen) Configured() bool { return g.err == nil }

func (g *fakeTextGen) GenerateImagePrompt(_ context.Context, _ string) (string, error) {
	return g.prompt, g.err
}

func (g *fakeTextGen) GenerateCaption(_ context.Context, _ gen.CaptionRequest) (string, error) {
	return g.caption, g.err
}

type fakePhotoGen struct {
	data []byte
	err  error
}

func (g *fakePhotoGen) GeneratePhoto(_ context.Context, _ gen.PhotoRequest) ([]byte, error) {
	return g.data, g.err
}

type fakeLibrary struct {
	photos []media.Photo
	saved  []media.PhotoMeta
}

func (l *fakeLibrary) SavePhoto(_ []byte, meta media.PhotoMeta) (media.Photo, error) {
	l.saved = append(l.saved, meta)
	return media.Photo{Filename: "20250601_120000.jpg", Prompt: meta.Prompt}, nil
}

func (l *fakeLibrary) ListPhotos() ([]media.Photo, error) {
	return l.photos, nil
}

func (l *fakeLibrary) PhotoPath(name string) (string, error) {
	return "", fmt.Errorf("%w: %s", media.ErrNotFound, name)
}

type testEnv struct {
	mux       *http.ServeMux
	queue     *fakeQueue
	history   *fakeHistory
	publisher *fakePublisher
	cache     *fakeSessionCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		queue:     &fakeQueue{},
		history:   &fakeHistory{},
		publisher: &fakePublisher{mediaID: "media-1"},
		cache:     &fakeSessionCache{},
	}

	h := NewHandler(Config{
		Queue:        env.queue,
		History:      env.history,
		Publisher:    env.publisher,
		Sessions:     &fakeSessions{session: &instagram.Session{Username: "testuser", SessionID: "sid"}},
		SessionCache: env.cache,
		PhotoGen:     &fakePhotoGen{data: []byte("jpeg")},
		TextGen:      &fakeTextGen{prompt: "a prompt", caption: "a caption"},
		Library:      &fakeLibrary{},
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	env.mux = http.NewServeMux()
	h.RegisterRoutes(env.mux)
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

func TestSchedulePost(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/posts/schedule", SchedulePostRequest{
		Caption:     "hello",
		Photos:      []string{"photo.jpg"},
		ScheduledAt: time.Now().UTC().Add(time.Hour),
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if len(env.queue.enqueued) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(env.queue.enqueued))
	}
	post := env.queue.enqueued[0]
	if post.Status != domain.PostStatusScheduled {
		t.Errorf("Status = %q, want scheduled", post.Status)
	}
	if post.Username != "testuser" {
		t.Errorf("Username = %q, want testuser", post.Username)
	}
	if post.ID == "" {
		t.Error("ID is empty")
	}
}

func TestSchedulePostRejectsPastTime(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/posts/schedule", SchedulePostRequest{
		Photos:      []string{"photo.jpg"},
		ScheduledAt: time.Now().UTC().Add(-time.Minute),
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(env.queue.enqueued) != 0 {
		t.Errorf("enqueued = %d, want 0", len(env.queue.enqueued))
	}
}

func TestSchedulePostRequiresMedia(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/posts/schedule", SchedulePostRequest{
		Caption:     "no media",
		ScheduledAt: time.Now().UTC().Add(time.Hour),
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSchedulePostRejectsBadRecurrence(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/posts/schedule", SchedulePostRequest{
		Photos:      []string{"photo.jpg"},
		ScheduledAt: time.Now().UTC().Add(time.Hour),
		Recurrence:  "not a cron",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPublishNow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/posts", PublishNowRequest{
		Caption: "hello",
		Photos:  []string{"photo.jpg"},
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}
	if len(env.history.written) != 1 {
		t.Fatalf("history written = %d, want 1", len(env.history.written))
	}
	if env.history.written[0].MediaID != "media-1" {
		t.Errorf("MediaID = %q, want media-1", env.history.written[0].MediaID)
	}
}

func TestPublishNowWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.restoreErr = instagram.ErrAuthUnavailable

	rec := env.do(t, http.MethodPost, "/api/v1/posts", PublishNowRequest{
		Photos: []string{"photo.jpg"},
	})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCancelScheduled(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodDelete, "/api/v1/posts/scheduled/20250601_120000.000000000", nil)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(env.queue.claimed) != 1 || env.queue.claimed[0] != "20250601_120000.000000000" {
		t.Errorf("claimed = %v", env.queue.claimed)
	}
}

func TestCancelScheduledNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.queue.claimErr = repo.ErrAlreadyClaimed

	rec := env.do(t, http.MethodDelete, "/api/v1/posts/scheduled/missing", nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPostsHistoryMergedAndSorted(t *testing.T) {
	env := newTestEnv(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env.queue.posts = []domain.ScheduledPost{
		{ID: "pending", ScheduledAt: base.Add(2 * time.Hour), Status: domain.PostStatusScheduled},
	}
	env.history.records = []domain.HistoryRecord{
		{JobID: "old", Status: domain.PostStatusPublished, PublishedAt: base},
		{JobID: "recent", Status: domain.PostStatusFailed, PublishedAt: base.Add(time.Hour)},
	}

	rec := env.do(t, http.MethodGet, "/api/v1/posts/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Data []HistoryItem `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	got := make([]string, len(resp.Data))
	for i, item := range resp.Data {
		got[i] = item.ID
	}
	want := []string{"pending", "recent", "old"}
	if len(got) != len(want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("items[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoginResetsSessionCache(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Username: "testuser",
		Password: "secret",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if env.cache.resets != 1 {
		t.Errorf("session cache resets = %d, want 1", env.cache.resets)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Username: "testuser"})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateTextRejectsBadSize(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/generate/text", GenerateTextRequest{
		Topic: "coffee",
		Size:  "enormous",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGeneratePhotoSavesToLibrary(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/generate/photo", GeneratePhotoRequest{
		Prompt: "a cat on a roof",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Data media.Photo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Prompt != "a cat on a roof" {
		t.Errorf("Prompt = %q", resp.Data.Prompt)
	}
}
