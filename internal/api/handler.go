package api

import (
	"context"
	"log/slog"

	"github.com/avdeev/postpilot/internal/domain"
	"github.com/avdeev/postpilot/internal/gen"
	"github.com/avdeev/postpilot/internal/instagram"
	"github.com/avdeev/postpilot/internal/media"
)

// Queue — очередь отложенных постов.
type Queue interface {
	Enqueue(ctx context.Context, post *domain.ScheduledPost) error
	ListPosts(ctx context.Context) ([]domain.ScheduledPost, error)
	Claim(ctx context.Context, id string) (*domain.ScheduledPost, error)
}

// History — история публикаций.
type History interface {
	WriteRecord(ctx context.Context, rec *domain.HistoryRecord) error
	List(ctx context.Context, limit int) ([]domain.HistoryRecord, error)
}

// Publisher — клиент публикации (Instagram через sidecar).
type Publisher interface {
	Login(ctx context.Context, username, password string) error
	Logout() error
	RestoreSession(ctx context.Context) (any, error)
	Verify(ctx context.Context, session any) error
	PublishMedia(ctx context.Context, session any, caption string, photos, videos []string) (string, error)
}

// Sessions — доступ к сохранённой сессии.
type Sessions interface {
	Load() (*instagram.Session, error)
}

// SessionCache — кэш сессии dispatcher'а, сбрасываемый при login/logout.
type SessionCache interface {
	ResetSession()
}

// PhotoGenerator — генератор изображений.
type PhotoGenerator interface {
	GeneratePhoto(ctx context.Context, req gen.PhotoRequest) ([]byte, error)
}

// TextGenerator — генератор промптов и текстов постов.
type TextGenerator interface {
	Configured() bool
	GenerateImagePrompt(ctx context.Context, topic string) (string, error)
	GenerateCaption(ctx context.Context, req gen.CaptionRequest) (string, error)
}

// MediaLibrary — файловое хранилище медиа.
type MediaLibrary interface {
	SavePhoto(data []byte, meta media.PhotoMeta) (media.Photo, error)
	ListPhotos() ([]media.Photo, error)
	PhotoPath(name string) (string, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	queue        Queue
	history      History
	publisher    Publisher
	sessions     Sessions
	sessionCache SessionCache
	photoGen     PhotoGenerator
	textGen      TextGenerator
	library      MediaLibrary
	logger       *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Queue        Queue
	History      History
	Publisher    Publisher
	Sessions     Sessions
	SessionCache SessionCache
	PhotoGen     PhotoGenerator
	TextGen      TextGenerator
	Library      MediaLibrary
	Logger       *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		queue:        cfg.Queue,
		history:      cfg.History,
		publisher:    cfg.Publisher,
		sessions:     cfg.Sessions,
		sessionCache: cfg.SessionCache,
		photoGen:     cfg.PhotoGen,
		textGen:      cfg.TextGen,
		library:      cfg.Library,
		logger:       cfg.Logger,
	}
}
