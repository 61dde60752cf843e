package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ошибки медиа-хранилища.
var (
	// ErrNotFound — файл не найден.
	ErrNotFound = errors.New("media file not found")

	// ErrBadName — имя файла содержит путь или недопустимые символы.
	ErrBadName = errors.New("bad media file name")
)

// fileTimestampLayout — формат имени файла, унаследованный от старого
// файлового хранилища: 20060102_150405.jpg + 20060102_150405.json рядом.
const fileTimestampLayout = "20060102_150405"

// PhotoMeta — метаданные сгенерированной фотографии,
// сохраняются в json-файле рядом с изображением.
type PhotoMeta struct {
	Prompt    string `json:"prompt"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Model     string `json:"model"`
	Seed      int64  `json:"seed,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Photo — фотография из хранилища.
type Photo struct {
	Filename  string `json:"filename"`
	Prompt    string `json:"prompt"`
	Timestamp string `json:"timestamp"`
}

// Store — файловое хранилище медиа: data/photos и data/videos.
type Store struct {
	photosDir string
	videosDir string
}

// NewStore создаёт Store и каталоги, если их ещё нет.
func NewStore(photosDir, videosDir string) (*Store, error) {
	for _, dir := range []string{photosDir, videosDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create media dir %s: %w", dir, err)
		}
	}
	return &Store{photosDir: photosDir, videosDir: videosDir}, nil
}

// SavePhoto сохраняет jpeg и метаданные, возвращает имя файла.
// Имя — момент сохранения; при коллизии в пределах секунды
// добавляется короткий uuid-суффикс.
func (s *Store) SavePhoto(data []byte, meta PhotoMeta) (Photo, error) {
	ts := time.Now().UTC().Format(fileTimestampLayout)
	base := ts
	if _, err := os.Stat(filepath.Join(s.photosDir, base+".jpg")); err == nil {
		base = ts + "_" + uuid.NewString()[:8]
	}

	meta.Timestamp = ts
	filename := base + ".jpg"

	if err := writeFileAtomic(filepath.Join(s.photosDir, filename), data); err != nil {
		return Photo{}, fmt.Errorf("write photo: %w", err)
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Photo{}, fmt.Errorf("marshal photo meta: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.photosDir, base+".json"), metaJSON); err != nil {
		return Photo{}, fmt.Errorf("write photo meta: %w", err)
	}

	return Photo{Filename: filename, Prompt: meta.Prompt, Timestamp: ts}, nil
}

// ListPhotos возвращает фотографии, новые первыми.
func (s *Store) ListPhotos() ([]Photo, error) {
	entries, err := os.ReadDir(s.photosDir)
	if err != nil {
		return nil, fmt.Errorf("read photos dir: %w", err)
	}

	var photos []Photo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jpg") {
			continue
		}

		photo := Photo{Filename: name}

		metaPath := filepath.Join(s.photosDir, strings.TrimSuffix(name, ".jpg")+".json")
		if metaJSON, err := os.ReadFile(metaPath); err == nil {
			var meta PhotoMeta
			if err := json.Unmarshal(metaJSON, &meta); err == nil {
				photo.Prompt = meta.Prompt
				photo.Timestamp = meta.Timestamp
			}
		}

		photos = append(photos, photo)
	}

	sort.Slice(photos, func(i, j int) bool {
		return photos[i].Filename > photos[j].Filename
	})
	return photos, nil
}

// PhotoPath возвращает абсолютный путь к фотографии по имени.
func (s *Store) PhotoPath(name string) (string, error) {
	return s.resolve(s.photosDir, name)
}

// VideoPath возвращает абсолютный путь к видео по имени.
func (s *Store) VideoPath(name string) (string, error) {
	return s.resolve(s.videosDir, name)
}

func (s *Store) resolve(dir, name string) (string, error) {
	// Имя — только базовое, без компонентов пути
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}

	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return path, nil
}

// writeFileAtomic пишет во временный файл и переименовывает.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
