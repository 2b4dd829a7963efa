// Package resume выдает и проверяет токены восстановления сессии.
// Клиент, потерявший соединение, предъявляет токен при повторном
// подключении и получает назад свой client id, подписки и позицию
// в журнале изменений — без полного bootstrap.
package resume

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "shiftsync"

// Claims представляет JWT claims resume-токена
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// State — сохраненное состояние сессии на время обрыва
type State struct {
	ExpiresAt   time.Time // после этого момента состояние не восстанавливается
	Topics      []string  // подписки на момент обрыва
	LastVersion int64     // последняя доставленная глобальная версия
}

// Service выдает resume-токены и хранит состояние оборванных сессий.
// Состояние живет в памяти не дольше TTL токена: перезапуск сервера
// обнуляет и то и другое, клиент просто делает полный bootstrap.
type Service struct {
	stash  map[string]*State
	secret []byte
	ttl    time.Duration
	mu     sync.Mutex
}

// NewService создает сервис resume-токенов.
// Пустой secret заменяется случайным: токены перестают переживать
// перезапуск процесса, что безопаснее общего дефолтного секрета.
func NewService(secret string, ttl time.Duration) (*Service, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate resume secret: %w", err)
		}
	}

	return &Service{
		secret: key,
		ttl:    ttl,
		stash:  make(map[string]*State),
	}, nil
}

// TTL возвращает срок жизни resume-токена.
func (s *Service) TTL() time.Duration { return s.ttl }

// IssueToken создает подписанный resume-токен для клиента
func (s *Service) IssueToken(clientID string) (string, error) {
	now := time.Now()

	claims := Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign resume token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken проверяет подпись и срок действия, возвращает client id
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Принимаем только HMAC: токен с другим алгоритмом — чужой
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return "", fmt.Errorf("failed to parse resume token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid resume token")
	}

	return claims.ClientID, nil
}

// Stash сохраняет состояние оборванной сессии до истечения TTL.
// Повторный вызов для того же клиента перезаписывает состояние.
func (s *Service) Stash(clientID string, topics []string, lastVersion int64) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired(now)
	s.stash[clientID] = &State{
		ExpiresAt:   now.Add(s.ttl),
		Topics:      topics,
		LastVersion: lastVersion,
	}
}

// Restore возвращает сохраненное состояние сессии и удаляет его из stash.
// Второй Restore для того же клиента вернет false.
func (s *Service) Restore(clientID string) (*State, bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.stash[clientID]
	if !ok {
		return nil, false
	}
	delete(s.stash, clientID)

	if now.After(state.ExpiresAt) {
		return nil, false
	}

	return state, true
}

// evictExpired удаляет протухшие записи; вызывается под s.mu
func (s *Service) evictExpired(now time.Time) {
	for id, state := range s.stash {
		if now.After(state.ExpiresAt) {
			delete(s.stash, id)
		}
	}
}
