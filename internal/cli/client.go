package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// AuthStatusResponse — статус сессии из API.
type AuthStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

// PhotoResponse — фотография из библиотеки.
type PhotoResponse struct {
	Filename  string `json:"filename"`
	Prompt    string `json:"prompt,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// PromptResponse — сгенерированный промпт.
type PromptResponse struct {
	Prompt string `json:"prompt"`
}

// CaptionResponse — сгенерированный текст поста.
type CaptionResponse struct {
	Caption string `json:"caption"`
}

// PublishResponse — результат немедленной публикации.
type PublishResponse struct {
	MediaID     string `json:"media_id"`
	PublishedAt string `json:"published_at"`
}

// PostResponse — отложенный пост из API.
type PostResponse struct {
	ID          string   `json:"id"`
	Caption     string   `json:"caption"`
	Photos      []string `json:"photos"`
	Videos      []string `json:"videos"`
	ScheduledAt string   `json:"scheduled_at"`
	CreatedAt   string   `json:"created_at"`
	Username    string   `json:"username,omitempty"`
	Status      string   `json:"status"`
	Recurrence  string   `json:"recurrence,omitempty"`
	Attempts    int      `json:"attempts,omitempty"`
	LastError   string   `json:"last_error,omitempty"`
}

// HistoryItemResponse — элемент объединённой истории.
type HistoryItemResponse struct {
	ID          string   `json:"id"`
	MediaID     string   `json:"media_id,omitempty"`
	Caption     string   `json:"caption"`
	Photos      []string `json:"photos"`
	Videos      []string `json:"videos"`
	ScheduledAt string   `json:"scheduled_at"`
	Username    string   `json:"username,omitempty"`
	Status      string   `json:"status"`
	PublishedAt string   `json:"published_at,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// --- Request types ---

// LoginRequest — вход в Instagram.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GeneratePhotoRequest — генерация изображения.
type GeneratePhotoRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Model  string `json:"model,omitempty"`
	Seed   int64  `json:"seed,omitempty"`
}

// GenerateTextRequest — генерация текста поста.
type GenerateTextRequest struct {
	Topic        string `json:"topic"`
	Size         string `json:"size,omitempty"`
	AddHashtags  bool   `json:"add_hashtags,omitempty"`
	HashtagCount int    `json:"hashtag_count,omitempty"`
}

// PublishNowRequest — немедленная публикация.
type PublishNowRequest struct {
	Caption string   `json:"caption"`
	Photos  []string `json:"photos"`
	Videos  []string `json:"videos"`
}

// SchedulePostRequest — отложенная публикация.
type SchedulePostRequest struct {
	Caption     string    `json:"caption"`
	Photos      []string  `json:"photos"`
	Videos      []string  `json:"videos"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Recurrence  string    `json:"recurrence,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для PostPilot API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// генерация и публикация могут занимать минуты
			Timeout: 5 * time.Minute,
		},
	}
}

// --- Auth ---

// Login выполняет вход в Instagram.
func (c *Client) Login(username, password string) (*AuthStatusResponse, error) {
	var status AuthStatusResponse
	err := c.post("/api/v1/auth/login", LoginRequest{Username: username, Password: password}, &status)
	return &status, err
}

// AuthStatus возвращает статус сессии.
func (c *Client) AuthStatus() (*AuthStatusResponse, error) {
	var status AuthStatusResponse
	err := c.get("/api/v1/auth/status", &status)
	return &status, err
}

// Logout удаляет сохранённую сессию.
func (c *Client) Logout() error {
	return c.post("/api/v1/auth/logout", nil, nil)
}

// --- Generation ---

// GeneratePhoto генерирует изображение и сохраняет его в библиотеку.
func (c *Client) GeneratePhoto(req GeneratePhotoRequest) (*PhotoResponse, error) {
	var photo PhotoResponse
	err := c.post("/api/v1/generate/photo", req, &photo)
	return &photo, err
}

// GeneratePrompt строит визуальный промпт по теме поста.
func (c *Client) GeneratePrompt(topic string) (*PromptResponse, error) {
	var prompt PromptResponse
	err := c.post("/api/v1/generate/prompt", map[string]string{"topic": topic}, &prompt)
	return &prompt, err
}

// GenerateText генерирует текст поста.
func (c *Client) GenerateText(req GenerateTextRequest) (*CaptionResponse, error) {
	var caption CaptionResponse
	err := c.post("/api/v1/generate/text", req, &caption)
	return &caption, err
}

// --- Photos ---

// ListPhotos возвращает фотографии из библиотеки.
func (c *Client) ListPhotos() ([]PhotoResponse, error) {
	var photos []PhotoResponse
	err := c.list("/api/v1/photos", &photos)
	return photos, err
}

// --- Posts ---

// PublishNow немедленно публикует пост.
func (c *Client) PublishNow(req PublishNowRequest) (*PublishResponse, error) {
	var resp PublishResponse
	err := c.post("/api/v1/posts", req, &resp)
	return &resp, err
}

// SchedulePost ставит пост в очередь отложенной публикации.
func (c *Client) SchedulePost(req SchedulePostRequest) (*PostResponse, error) {
	var post PostResponse
	err := c.post("/api/v1/posts/schedule", req, &post)
	return &post, err
}

// ListScheduled возвращает посты, ожидающие публикации.
func (c *Client) ListScheduled() ([]PostResponse, error) {
	var posts []PostResponse
	err := c.list("/api/v1/posts/scheduled", &posts)
	return posts, err
}

// CancelScheduled отменяет отложенный пост.
func (c *Client) CancelScheduled(id string) error {
	return c.delete("/api/v1/posts/scheduled/" + id)
}

// History возвращает объединённую историю публикаций.
func (c *Client) History() ([]HistoryItemResponse, error) {
	var items []HistoryItemResponse
	err := c.list("/api/v1/posts/history", &items)
	return items, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, result any) error {
	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
