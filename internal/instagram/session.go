package instagram

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Session — авторизованная сессия Instagram.
// Для dispatcher'а это непрозрачный дескриптор.
type Session struct {
	Username  string `json:"username"`
	SessionID string `json:"sessionid"`
}

// SessionManager владеет сохранённой сессией с явным жизненным циклом:
// создаётся при первом успешном входе, заменяется при logout,
// перечитывается при восстановлении. Доступ к файлу сериализован
// собственным мьютексом — login/logout из API-потока не гоняются
// с восстановлением сессии внутри dispatch-цикла.
type SessionManager struct {
	path string

	mu sync.Mutex
}

// NewSessionManager создаёт менеджер сессии, хранящейся в path.
func NewSessionManager(path string) *SessionManager {
	return &SessionManager{path: path}
}

// Load читает сохранённую сессию.
// Если файла нет, возвращает ErrAuthUnavailable.
func (m *SessionManager) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAuthUnavailable
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	if s.SessionID == "" {
		return nil, ErrAuthUnavailable
	}
	return &s, nil
}

// Save сохраняет сессию атомарно (запись во временный файл + rename).
func (m *SessionManager) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename session file: %w", err)
	}
	return nil
}

// Clear удаляет сохранённую сессию (logout).
func (m *SessionManager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
