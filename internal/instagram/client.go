package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/avdeev/postpilot/internal/media"
)

const defaultUploadTimeout = 5 * time.Minute

// Client — клиент публикации в Instagram через instagrapi-rest sidecar.
//
// Сервис не говорит с приватным API Instagram напрямую: логин и загрузку
// медиа выполняет sidecar, клиент передаёт ему sessionid из сохранённой
// сессии. Загрузки троттлятся rate-лимитером, чтобы не упереться
// в лимиты платформы.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   *SessionManager
	mediaStore *media.Store
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Config — конфигурация клиента.
type Config struct {
	BaseURL          string
	Sessions         *SessionManager
	MediaStore       *media.Store
	UploadsPerMinute float64 // default: 4
	Logger           *slog.Logger
}

// NewClient создаёт клиент Instagram.
func NewClient(cfg Config) *Client {
	perMinute := cfg.UploadsPerMinute
	if perMinute <= 0 {
		perMinute = 4
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: defaultUploadTimeout,
		},
		sessions:   cfg.Sessions,
		mediaStore: cfg.MediaStore,
		limiter:    rate.NewLimiter(rate.Limit(perMinute/60.0), 1),
		logger:     logger,
	}
}

// Login выполняет вход и сохраняет сессию.
// Если сохранённая сессия уже есть, sidecar переиспользует её
// настройки устройства, как это делал оригинальный клиент.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	if existing, err := c.sessions.Load(); err == nil && existing.Username == username {
		form.Set("sessionid", existing.SessionID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/login", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d: %s", ErrAuthUnavailable, resp.StatusCode, truncate(body, 200))
	}

	// Ответ — sessionid в виде JSON-строки
	var sessionID string
	if err := json.Unmarshal(body, &sessionID); err != nil || sessionID == "" {
		return fmt.Errorf("%w: unexpected login response", ErrAuthUnavailable)
	}

	if err := c.sessions.Save(&Session{Username: username, SessionID: sessionID}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	c.logger.Info("instagram login successful", "username", username)
	return nil
}

// Logout удаляет сохранённую сессию.
func (c *Client) Logout() error {
	return c.sessions.Clear()
}

// RestoreSession восстанавливает сессию из сохранённого состояния.
// Возвращает ErrAuthUnavailable, если сохранённой сессии нет.
func (c *Client) RestoreSession(ctx context.Context) (any, error) {
	s, err := c.sessions.Load()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Verify проверяет, что сессия жива, простым запросом ленты.
func (c *Client) Verify(ctx context.Context, session any) error {
	s, err := assertSession(session)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/timeline/feed?sessionid=" + url.QueryEscape(s.SessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create verify request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrAuthUnavailable, resp.StatusCode)
	}
	return nil
}

// PublishMedia публикует пост и возвращает media id, присвоенный платформой.
//
// Одно фото без видео — photo upload; одно видео без фото — video upload;
// всё остальное — альбом. Имена файлов разрешаются в пути через
// медиа-хранилище, отсутствующий файл — ошибка до обращения к API.
func (c *Client) PublishMedia(ctx context.Context, session any, caption string, photos, videos []string) (string, error) {
	s, err := assertSession(session)
	if err != nil {
		return "", err
	}

	photoPaths, err := c.resolveAll(photos, c.mediaStore.PhotoPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	videoPaths, err := c.resolveAll(videos, c.mediaStore.VideoPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	if len(photoPaths) == 0 && len(videoPaths) == 0 {
		return "", ErrNoMedia
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	var endpoint string
	var paths []string
	switch {
	case len(photoPaths) == 1 && len(videoPaths) == 0:
		endpoint = "/photo/upload"
		paths = photoPaths
	case len(photoPaths) == 0 && len(videoPaths) == 1:
		endpoint = "/video/upload"
		paths = videoPaths
	default:
		endpoint = "/album/upload"
		paths = append(photoPaths, videoPaths...)
	}

	mediaID, err := c.upload(ctx, s, endpoint, caption, paths)
	if err != nil {
		return "", err
	}

	c.logger.Info("media published",
		"username", s.Username,
		"media_id", mediaID,
		"photos", len(photoPaths),
		"videos", len(videoPaths),
	)
	return mediaID, nil
}

func (c *Client) upload(ctx context.Context, s *Session, endpoint, caption string, paths []string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("sessionid", s.SessionID); err != nil {
		return "", fmt.Errorf("write sessionid field: %w", err)
	}
	if err := mw.WriteField("caption", caption); err != nil {
		return "", fmt.Errorf("write caption field: %w", err)
	}

	for _, path := range paths {
		if err := attachFile(mw, path); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: HTTP %d", ErrAuthUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrUploadFailed, resp.StatusCode, truncate(body, 200))
	}

	var uploaded struct {
		PK string `json:"pk"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil || uploaded.PK == "" {
		return "", fmt.Errorf("%w: unexpected upload response", ErrUploadFailed)
	}
	return uploaded.PK, nil
}

// --- Helpers ---

func (c *Client) resolveAll(names []string, resolve func(string) (string, error)) ([]string, error) {
	var paths []string
	for _, name := range names {
		path, err := resolve(name)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func assertSession(session any) (*Session, error) {
	s, ok := session.(*Session)
	if !ok || s == nil || s.SessionID == "" {
		return nil, ErrAuthUnavailable
	}
	return s, nil
}

func attachFile(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
