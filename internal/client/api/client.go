// Package api — WebSocket-клиент сервера синхронизации: установка
// сессии, типизированные операции протокола и цикл прослушивания
// широковещательных событий.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/shiftsync/pkg/api"
)

const (
	dialTimeout    = 10 * time.Second
	requestTimeout = 10 * time.Second
	writeTimeout   = 10 * time.Second
)

// ServerError — ошибка, присланная сервером в ответ на запрос.
// Для user_choice_required Conflict содержит оба снимка и пополевые
// расхождения.
type ServerError struct {
	Code     string
	Message  string
	Detail   string
	Conflict *api.ConflictInfo
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client держит одно WebSocket-соединение с сервером. Методы не
// потокобезопасны: клиент либо выполняет одиночные команды, либо
// целиком отдан циклу Listen.
type Client struct {
	conn    *websocket.Conn
	session api.SessionCreated
}

// Dial подключается к серверу и дожидается session-created.
// serverURL принимает http(s)-форму (как значение флага --server);
// непустой resumeToken просит восстановить прежнюю сессию.
func Dial(ctx context.Context, serverURL, resumeToken string) (*Client, error) {
	wsURL, err := buildWSURL(serverURL, resumeToken)
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c := &Client{conn: conn}

	env, err := c.read(dialTimeout)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to read session handshake: %w", err)
	}
	if env.Type != api.MsgSessionCreated {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected first message %q, want %s", env.Type, api.MsgSessionCreated)
	}
	if err := env.Decode(&c.session); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return c, nil
}

// buildWSURL переводит http(s)-адрес сервера в адрес WebSocket-точки
func buildWSURL(serverURL, resumeToken string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", serverURL, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	if resumeToken != "" {
		q := u.Query()
		q.Set("resume", resumeToken)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Session возвращает параметры установленной сессии
func (c *Client) Session() api.SessionCreated {
	return c.session
}

// Close закрывает соединение
func (c *Client) Close() error {
	return c.conn.Close()
}

// CreateEmployee создает запись ростера и возвращает подтверждение
// с авторитетным снимком
func (c *Client) CreateEmployee(e api.Employee) (*api.EntityEvent, error) {
	if err := c.send(api.MsgEntityCreate, api.EntityCreateRequest{Employee: e}); err != nil {
		return nil, err
	}
	return c.awaitEntityEvent(api.MsgEntityCreated)
}

// UpdateEmployee применяет разреженный патч. expectedVersion — версия,
// которую клиент видел последней; ноль отключает optimistic lock.
func (c *Client) UpdateEmployee(id string, changes api.EmployeePatch, expectedVersion int64) (*api.EntityEvent, error) {
	req := api.EntityUpdateRequest{
		ID:              id,
		Changes:         changes,
		ExpectedVersion: expectedVersion,
	}
	if err := c.send(api.MsgEntityUpdate, req); err != nil {
		return nil, err
	}
	return c.awaitEntityEvent(api.MsgEntityUpdated)
}

// DeleteEmployee удаляет запись ростера
func (c *Client) DeleteEmployee(id string) (*api.EntityEvent, error) {
	if err := c.send(api.MsgEntityDelete, api.EntityDeleteRequest{ID: id}); err != nil {
		return nil, err
	}
	return c.awaitEntityEvent(api.MsgEntityDeleted)
}

// Sync запрашивает догоняющую синхронизацию с указанной глобальной
// версии; ноль означает полный bootstrap.
func (c *Client) Sync(since int64) (*api.SyncResponse, error) {
	if err := c.send(api.MsgSyncRequest, api.SyncRequest{SinceVersion: since}); err != nil {
		return nil, err
	}

	env, err := c.await(api.MsgSyncResponse)
	if err != nil {
		return nil, err
	}

	var resp api.SyncResponse
	if err := env.Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Subscribe подписывает сессию на топики. Успешная подписка отдельным
// сообщением не подтверждается, поэтому вслед за запросами идет ping:
// pong без промежуточной ошибки означает, что все подписки приняты.
func (c *Client) Subscribe(topics ...string) error {
	for _, topic := range topics {
		if err := c.send(api.MsgSubscribe, api.SubscribeRequest{Topic: topic}); err != nil {
			return err
		}
	}
	return c.Ping()
}

// Ping проверяет живость сессии и подтверждает ее серверу
func (c *Client) Ping() error {
	if err := c.send(api.MsgPing, nil); err != nil {
		return err
	}
	_, err := c.await(api.MsgPong)
	return err
}

// Listen отдает входящие события обработчику до отмены контекста или
// потери соединения. Параллельно шлет ping с периодом heartbeat-интервала
// сессии: молчащего клиента сервер снимает с обслуживания. После
// возврата соединение непригодно для дальнейших команд.
func (c *Client) Listen(ctx context.Context, handle func(env *api.Envelope)) error {
	interval := time.Duration(c.session.HeartbeatInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// Закрытие соединения разблокирует чтение
				_ = c.conn.Close()
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := c.send(api.MsgPing, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		// Сервер обязан присылать хоть что-то в ответ на наши ping;
		// тишина дольше трех интервалов означает мертвое соединение
		_ = c.conn.SetReadDeadline(time.Now().Add(3 * interval))
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("connection lost: %w", err)
		}

		var env api.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if env.Type == api.MsgPong {
			continue
		}
		handle(&env)
	}
}

func (c *Client) send(msgType string, payload any) error {
	data, err := api.Encode(msgType, payload)
	if err != nil {
		return err
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}
	return nil
}

func (c *Client) read(timeout time.Duration) (*api.Envelope, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var env api.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return &env, nil
}

// await читает кадры, пока не встретит wantType или сообщение об ошибке.
// Чужие события пропускаются: восстановленная сессия может получать
// широковещательные кадры по восстановленным подпискам.
func (c *Client) await(wantType string) (*api.Envelope, error) {
	deadline := time.Now().Add(requestTimeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("timed out waiting for %s", wantType)
		}

		env, err := c.read(remaining)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", wantType, err)
		}

		switch env.Type {
		case wantType:
			return env, nil
		case api.MsgError:
			return nil, decodeServerError(env)
		default:
			continue
		}
	}
}

func (c *Client) awaitEntityEvent(wantType string) (*api.EntityEvent, error) {
	for {
		env, err := c.await(wantType)
		if err != nil {
			return nil, err
		}

		var event api.EntityEvent
		if err := env.Decode(&event); err != nil {
			return nil, err
		}
		// Событие чужой правки по восстановленной подписке — не наш ответ
		if event.ClientID != c.session.ClientID {
			continue
		}
		return &event, nil
	}
}

func decodeServerError(env *api.Envelope) error {
	var msg api.ErrorMessage
	if err := env.Decode(&msg); err != nil {
		return fmt.Errorf("server sent undecodable error: %w", err)
	}
	return &ServerError{
		Code:     msg.Code,
		Message:  msg.Message,
		Detail:   msg.Detail,
		Conflict: msg.Conflict,
	}
}
