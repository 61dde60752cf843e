package gen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultPollinationsTimeout = 120 * time.Second

// PhotoRequest — параметры генерации изображения.
type PhotoRequest struct {
	Prompt string
	Width  int
	Height int
	Model  string
	Seed   int64
}

// PollinationsClient — клиент Pollinations image API.
//
// Генерация — один GET на /prompt/{prompt} с параметрами размера,
// модели и seed; в ответе сразу jpeg.
type PollinationsClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPollinationsClient создаёт клиент. baseURL без завершающего слэша,
// например https://image.pollinations.ai.
func NewPollinationsClient(baseURL string) *PollinationsClient {
	return &PollinationsClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultPollinationsTimeout,
		},
	}
}

// GeneratePhoto генерирует изображение и возвращает его байты.
func (c *PollinationsClient) GeneratePhoto(ctx context.Context, req PhotoRequest) ([]byte, error) {
	if req.Prompt == "" {
		req.Prompt = "beautiful landscape"
	}
	if req.Width <= 0 {
		req.Width = 1024
	}
	if req.Height <= 0 {
		req.Height = 1024
	}
	if req.Model == "" {
		req.Model = "flux"
	}

	params := url.Values{}
	params.Set("width", strconv.Itoa(req.Width))
	params.Set("height", strconv.Itoa(req.Height))
	params.Set("model", req.Model)
	params.Set("nologo", "true")
	if req.Seed != 0 {
		params.Set("seed", strconv.FormatInt(req.Seed, 10))
	}

	endpoint := c.baseURL + "/prompt/" + url.PathEscape(req.Prompt) + "?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("pollinations request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("pollinations: HTTP %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}
