package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/avdeev/postpilot/internal/domain"
	"github.com/avdeev/postpilot/internal/repo"
)

type fakeQueue struct {
	mu       sync.Mutex
	posts    map[string]*domain.ScheduledPost
	claimErr map[string]error
	requeued []*domain.ScheduledPost
	enqueued []*domain.ScheduledPost
}

func newFakeQueue(posts ...*domain.ScheduledPost) *fakeQueue {
	q := &fakeQueue{
		posts:    make(map[string]*domain.ScheduledPost),
		claimErr: make(map[string]error),
	}
	for _, p := range posts {
		q.posts[p.ID] = p
	}
	return q
}

func (q *fakeQueue) List(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.posts))
	for id := range q.posts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (q *fakeQueue) Claim(_ context.Context, id string) (*domain.ScheduledPost, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.claimErr[id]; err != nil {
		delete(q.posts, id)
		return nil, err
	}
	post, ok := q.posts[id]
	if !ok {
		return nil, repo.ErrAlreadyClaimed
	}
	delete(q.posts, id)
	return post, nil
}

func (q *fakeQueue) Requeue(_ context.Context, post *domain.ScheduledPost) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.posts[post.ID] = post
	q.requeued = append(q.requeued, post)
	return nil
}

func (q *fakeQueue) Enqueue(_ context.Context, post *domain.ScheduledPost) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.posts[post.ID] = post
	q.enqueued = append(q.enqueued, post)
	return nil
}

func (q *fakeQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.posts)
}

type fakeHistory struct {
	mu       sync.Mutex
	records  []*domain.HistoryRecord
	writeErr error
}

func (h *fakeHistory) WriteRecord(_ context.Context, rec *domain.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writeErr != nil {
		return h.writeErr
	}
	h.records = append(h.records, rec)
	return nil
}

type publishCall struct {
	session any
	caption string
	photos  []string
	videos  []string
}

type fakePublisher struct {
	mu           sync.Mutex
	restoreErr   error
	restoreCalls int
	publishErr   error
	published    []publishCall

	// entered/release — для теста перекрывающихся тиков:
	// PublishMedia сигналит в entered и ждёт закрытия release.
	entered chan struct{}
	release chan struct{}
}

func (p *fakePublisher) RestoreSession(_ context.Context) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restoreCalls++
	if p.restoreErr != nil {
		return nil, p.restoreErr
	}
	return "session-token", nil
}

func (p *fakePublisher) PublishMedia(_ context.Context, session any, caption string, photos, videos []string) (string, error) {
	if p.entered != nil {
		p.entered <- struct{}{}
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return "", p.publishErr
	}
	p.published = append(p.published, publishCall{session: session, caption: caption, photos: photos, videos: videos})
	return "media-42", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(q Queue, h History, p Publisher, policy RetryPolicy) *Dispatcher {
	return New(Config{
		Queue:     q,
		History:   h,
		Publisher: p,
		Policy:    policy,
		Logger:    discardLogger(),
	})
}

func duePost(id string) *domain.ScheduledPost {
	now := time.Now().UTC()
	return &domain.ScheduledPost{
		ID:          id,
		Caption:     "test caption",
		Photos:      []string{"photo.jpg"},
		ScheduledAt: now.Add(-time.Minute),
		CreatedAt:   now.Add(-time.Hour),
		Username:    "testuser",
		Status:      domain.PostStatusScheduled,
	}
}

func TestTickPublishesDuePost(t *testing.T) {
	queue := newFakeQueue(duePost("p1"))
	history := &fakeHistory{}
	pub := &fakePublisher{}
	d := newTestDispatcher(queue, history, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if queue.size() != 0 {
		t.Errorf("queue size = %d, want 0", queue.size())
	}
	if len(pub.published) != 1 {
		t.Fatalf("published calls = %d, want 1", len(pub.published))
	}
	if pub.published[0].caption != "test caption" {
		t.Errorf("caption = %q", pub.published[0].caption)
	}
	if len(history.records) != 1 {
		t.Fatalf("history records = %d, want 1", len(history.records))
	}
	rec := history.records[0]
	if rec.JobID != "p1" {
		t.Errorf("JobID = %q, want p1", rec.JobID)
	}
	if rec.MediaID != "media-42" {
		t.Errorf("MediaID = %q, want media-42", rec.MediaID)
	}
	if rec.Status != domain.PostStatusPublished {
		t.Errorf("Status = %q, want published", rec.Status)
	}
}

func TestTickRequeuesNotDuePost(t *testing.T) {
	post := duePost("p1")
	post.ScheduledAt = time.Now().UTC().Add(time.Hour)
	queue := newFakeQueue(post)
	history := &fakeHistory{}
	pub := &fakePublisher{}
	d := newTestDispatcher(queue, history, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(pub.published) != 0 {
		t.Errorf("published calls = %d, want 0", len(pub.published))
	}
	if len(queue.requeued) != 1 {
		t.Fatalf("requeued = %d, want 1", len(queue.requeued))
	}
	got := queue.requeued[0]
	if got.Attempts != 0 || got.NextAttemptAt != nil || got.LastError != "" {
		t.Errorf("not-due requeue must not touch retry state: %+v", got)
	}
	if pub.restoreCalls != 0 {
		t.Errorf("restoreCalls = %d, want 0 (no due posts)", pub.restoreCalls)
	}
}

func TestTickRespectsBackoffWindow(t *testing.T) {
	post := duePost("p1")
	next := time.Now().UTC().Add(10 * time.Minute)
	post.Attempts = 2
	post.NextAttemptAt = &next
	queue := newFakeQueue(post)
	pub := &fakePublisher{}
	d := newTestDispatcher(queue, &fakeHistory{}, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(pub.published) != 0 {
		t.Errorf("published calls = %d, want 0", len(pub.published))
	}
	if queue.size() != 1 {
		t.Errorf("queue size = %d, want 1", queue.size())
	}
}

func TestTickDiscardsStalePublishedPost(t *testing.T) {
	post := duePost("p1")
	post.Status = domain.PostStatusPublished
	queue := newFakeQueue(post)
	history := &fakeHistory{}
	pub := &fakePublisher{}
	d := newTestDispatcher(queue, history, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(pub.published) != 0 {
		t.Errorf("published calls = %d, want 0", len(pub.published))
	}
	if len(history.records) != 0 {
		t.Errorf("history records = %d, want 0", len(history.records))
	}
	if queue.size() != 0 {
		t.Errorf("queue size = %d, want 0 (stale post discarded)", queue.size())
	}
}

func TestTickDropsMalformedRecord(t *testing.T) {
	good := duePost("p2")
	queue := newFakeQueue(good)
	queue.posts["p1"] = nil
	queue.claimErr["p1"] = repo.ErrMalformedRecord
	history := &fakeHistory{}
	pub := &fakePublisher{}
	d := newTestDispatcher(queue, history, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	// повреждённая запись выброшена, здоровый пост опубликован
	if queue.size() != 0 {
		t.Errorf("queue size = %d, want 0", queue.size())
	}
	if len(history.records) != 1 {
		t.Errorf("history records = %d, want 1", len(history.records))
	}
}

func TestTickSkipsAlreadyClaimedPost(t *testing.T) {
	queue := newFakeQueue()
	queue.posts["p1"] = nil
	queue.claimErr["p1"] = repo.ErrAlreadyClaimed
	history := &fakeHistory{}
	pub := &fakePublisher{}
	d := newTestDispatcher(queue, history, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(history.records) != 0 {
		t.Errorf("history records = %d, want 0", len(history.records))
	}
	if len(queue.requeued) != 0 {
		t.Errorf("requeued = %d, want 0", len(queue.requeued))
	}
}

func TestRestoreSessionOncePerCycle(t *testing.T) {
	queue := newFakeQueue(duePost("p1"), duePost("p2"), duePost("p3"))
	pub := &fakePublisher{restoreErr: errors.New("no session file")}
	d := newTestDispatcher(queue, &fakeHistory{}, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if pub.restoreCalls != 1 {
		t.Errorf("restoreCalls = %d, want 1", pub.restoreCalls)
	}
	// все три поста ушли в retry
	if len(queue.requeued) != 3 {
		t.Fatalf("requeued = %d, want 3", len(queue.requeued))
	}
	for _, p := range queue.requeued {
		if p.Attempts != 1 {
			t.Errorf("post %s: Attempts = %d, want 1", p.ID, p.Attempts)
		}
		if p.NextAttemptAt == nil {
			t.Errorf("post %s: NextAttemptAt not set", p.ID)
		}
		if p.LastError == "" {
			t.Errorf("post %s: LastError not set", p.ID)
		}
	}
}

func TestSessionCachedAcrossTicks(t *testing.T) {
	queue := newFakeQueue(duePost("p1"), duePost("p2"))
	pub := &fakePublisher{}
	d := newTestDispatcher(queue, &fakeHistory{}, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("first Tick() error = %v", err)
	}
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("second Tick() error = %v", err)
	}

	if pub.restoreCalls != 1 {
		t.Errorf("restoreCalls = %d, want 1 (session cached)", pub.restoreCalls)
	}
	if len(pub.published) != 2 {
		t.Errorf("published calls = %d, want 2", len(pub.published))
	}
}

func TestPublishFailureClearsSession(t *testing.T) {
	queue := newFakeQueue(duePost("p1"))
	pub := &fakePublisher{publishErr: errors.New("upload failed")}
	d := newTestDispatcher(queue, &fakeHistory{}, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("first Tick() error = %v", err)
	}

	// снять backoff, чтобы второй тик попробовал снова
	queue.mu.Lock()
	for _, p := range queue.posts {
		p.NextAttemptAt = nil
	}
	queue.mu.Unlock()

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("second Tick() error = %v", err)
	}

	if pub.restoreCalls != 2 {
		t.Errorf("restoreCalls = %d, want 2 (session dropped after failure)", pub.restoreCalls)
	}
}

func TestResetSessionForcesRestore(t *testing.T) {
	queue := newFakeQueue(duePost("p1"))
	pub := &fakePublisher{}
	d := newTestDispatcher(queue, &fakeHistory{}, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("first Tick() error = %v", err)
	}

	d.ResetSession()

	// очередь снова не пуста, иначе второй тик выйдет до публикации
	if err := queue.Enqueue(context.Background(), duePost("p2")); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("second Tick() error = %v", err)
	}

	if pub.restoreCalls != 2 {
		t.Errorf("restoreCalls = %d, want 2", pub.restoreCalls)
	}
	if len(pub.published) != 2 {
		t.Errorf("published calls = %d, want 2", len(pub.published))
	}
}

func TestRetryExhaustionWritesFailureRecord(t *testing.T) {
	post := duePost("p1")
	post.Attempts = 2
	queue := newFakeQueue(post)
	history := &fakeHistory{}
	pub := &fakePublisher{publishErr: errors.New("upload failed")}
	d := newTestDispatcher(queue, history, pub, RetryPolicy{MaxAttempts: 3})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if queue.size() != 0 {
		t.Errorf("queue size = %d, want 0 (post dead-lettered)", queue.size())
	}
	if len(history.records) != 1 {
		t.Fatalf("history records = %d, want 1", len(history.records))
	}
	rec := history.records[0]
	if rec.Status != domain.PostStatusFailed {
		t.Errorf("Status = %q, want failed", rec.Status)
	}
	if rec.Error == "" {
		t.Error("Error is empty")
	}
	if rec.MediaID != "" {
		t.Errorf("MediaID = %q, want empty", rec.MediaID)
	}
}

func TestFailureRecordWriteErrorRequeues(t *testing.T) {
	post := duePost("p1")
	post.Attempts = 2
	queue := newFakeQueue(post)
	history := &fakeHistory{writeErr: errors.New("db down")}
	pub := &fakePublisher{publishErr: errors.New("upload failed")}
	d := newTestDispatcher(queue, history, pub, RetryPolicy{MaxAttempts: 3})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	// история недоступна — пост возвращается в очередь, а не теряется
	if queue.size() != 1 {
		t.Errorf("queue size = %d, want 1", queue.size())
	}
}

func TestRecurringPostSchedulesSuccessor(t *testing.T) {
	post := duePost("p1")
	post.Recurrence = "0 12 * * *"
	post.Attempts = 1
	queue := newFakeQueue(post)
	history := &fakeHistory{}
	pub := &fakePublisher{}
	d := newTestDispatcher(queue, history, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(queue.enqueued) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(queue.enqueued))
	}
	succ := queue.enqueued[0]
	if succ.ID == post.ID {
		t.Error("successor must get a fresh ID")
	}
	if succ.Caption != post.Caption || succ.Recurrence != post.Recurrence {
		t.Error("successor must inherit caption and recurrence")
	}
	if succ.Attempts != 0 || succ.NextAttemptAt != nil {
		t.Errorf("successor retry state must be reset: %+v", succ)
	}
	if !succ.ScheduledAt.After(time.Now().UTC()) {
		t.Errorf("successor ScheduledAt = %v, want future", succ.ScheduledAt)
	}
}

func TestRecurringSuccessorsGetDistinctIDs(t *testing.T) {
	first := duePost("p1")
	first.Recurrence = "0 12 * * *"
	second := duePost("p2")
	second.Recurrence = "0 18 * * *"
	queue := newFakeQueue(first, second)
	pub := &fakePublisher{}
	d := newTestDispatcher(queue, &fakeHistory{}, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	// оба преемника встали в очередь, и ID у них разные:
	// совпадение убило бы второй Enqueue на первичном ключе
	if len(queue.enqueued) != 2 {
		t.Fatalf("enqueued = %d, want 2", len(queue.enqueued))
	}
	if queue.enqueued[0].ID == queue.enqueued[1].ID {
		t.Errorf("successors share ID %q", queue.enqueued[0].ID)
	}
}

func TestRetrySucceedsOnLaterTick(t *testing.T) {
	queue := newFakeQueue(duePost("p1"))
	history := &fakeHistory{}
	pub := &fakePublisher{publishErr: errors.New("upload failed")}
	d := newTestDispatcher(queue, history, pub, RetryPolicy{MaxAttempts: 3})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("first Tick() error = %v", err)
	}

	if len(history.records) != 0 {
		t.Fatalf("history records after failed tick = %d, want 0", len(history.records))
	}
	if queue.size() != 1 {
		t.Fatalf("queue size after failed tick = %d, want 1", queue.size())
	}

	// публикация чинится, backoff-окно снимается — пост должен дойти
	pub.mu.Lock()
	pub.publishErr = nil
	pub.mu.Unlock()
	queue.mu.Lock()
	for _, p := range queue.posts {
		p.NextAttemptAt = nil
	}
	queue.mu.Unlock()

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("second Tick() error = %v", err)
	}

	if queue.size() != 0 {
		t.Errorf("queue size = %d, want 0", queue.size())
	}
	if len(history.records) != 1 {
		t.Fatalf("history records = %d, want 1", len(history.records))
	}
	rec := history.records[0]
	if rec.Status != domain.PostStatusPublished {
		t.Errorf("Status = %q, want published", rec.Status)
	}
	if rec.JobID != "p1" {
		t.Errorf("JobID = %q, want p1", rec.JobID)
	}
	if rec.MediaID != "media-42" {
		t.Errorf("MediaID = %q, want media-42", rec.MediaID)
	}
}

func TestInvalidRecurrenceDoesNotBlockPublish(t *testing.T) {
	post := duePost("p1")
	post.Recurrence = "not a cron expr"
	queue := newFakeQueue(post)
	history := &fakeHistory{}
	pub := &fakePublisher{}
	d := newTestDispatcher(queue, history, pub, RetryPolicy{})

	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(history.records) != 1 {
		t.Errorf("history records = %d, want 1", len(history.records))
	}
	if len(queue.enqueued) != 0 {
		t.Errorf("enqueued = %d, want 0", len(queue.enqueued))
	}
}

func TestOverlappingTickSkipped(t *testing.T) {
	queue := newFakeQueue(duePost("p1"))
	pub := &fakePublisher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	d := newTestDispatcher(queue, &fakeHistory{}, pub, RetryPolicy{})

	done := make(chan error, 1)
	go func() {
		done <- d.Tick(context.Background())
	}()

	// первый тик завис внутри PublishMedia
	<-pub.entered

	// второй тик должен выйти сразу, ничего не трогая
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("overlapping Tick() error = %v", err)
	}

	close(pub.release)
	if err := <-done; err != nil {
		t.Fatalf("first Tick() error = %v", err)
	}

	if len(pub.published) != 1 {
		t.Errorf("published calls = %d, want 1", len(pub.published))
	}
}
