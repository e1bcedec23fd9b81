// Package appliance реализует HTTP-клиент REST API хранилища (TrueNAS API v2.0).
//
// Каждый запрос завершается либо декодированным ответом, либо ошибкой, которая
// оборачивает одну из сигнальных ошибок пакета. Повторы не выполняются:
// неудачный запрос просто даёт пустой результат в текущем цикле сбора.
package appliance

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout ограничивает время одного запроса к хранилищу.
const DefaultTimeout = 15 * time.Second

// APIPrefix добавляется к адресу хранилища.
const APIPrefix = "/api/v2.0"

var (
	// ErrUnavailable означает сетевую ошибку или истечение таймаута.
	ErrUnavailable = errors.New("appliance unavailable")
	// ErrStatus означает ответ с кодом вне диапазона 2xx.
	ErrStatus = errors.New("appliance returned error status")
	// ErrDecode означает, что тело ответа не удалось разобрать.
	ErrDecode = errors.New("appliance response decode failed")
)

// StatusError несёт код ответа. Оборачивает ErrStatus.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Path, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// IsEmpty сообщает, что хранилище ничего не вернуло в этом цикле.
func IsEmpty(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrStatus) || errors.Is(err, ErrDecode)
}

// Client выполняет аутентифицированные запросы к API хранилища.
type Client struct {
	http    *resty.Client
	baseURL string
}

// Option настраивает Client.
type Option func(*resty.Client)

// WithTimeout заменяет таймаут одного запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) {
		c.SetTimeout(d)
	}
}

// New создаёт клиента для target. target может быть именем хоста
// (тогда используется https) или полным адресом со схемой.
func New(target, user, pass string, opts ...Option) *Client {
	base := BaseURL(target)

	client := resty.New().
		SetBaseURL(base).
		SetBasicAuth(user, pass).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(DefaultTimeout).
		SetRetryCount(0).
		// Хранилища обычно работают с самоподписанным сертификатом.
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec

	for _, opt := range opts {
		opt(client)
	}

	return &Client{http: client, baseURL: base}
}

// BaseURL строит корневой адрес API для target.
func BaseURL(target string) string {
	target = strings.TrimRight(target, "/")
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}
	return target + APIPrefix
}

// BaseURL возвращает корневой адрес API клиента.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get выполняет GET path и декодирует JSON-ответ в out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(path)
	return decode(path, resp, err, out)
}

// Post отправляет body как JSON на path и декодирует ответ в out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	return decode(path, resp, err, out)
}

// Ping проверяет связь с хранилищем и корректность учётных данных.
func (c *Client) Ping(ctx context.Context) error {
	var pong string
	if err := c.Get(ctx, "/core/ping", &pong); err != nil {
		return fmt.Errorf("ping %s: %w", c.baseURL, err)
	}
	return nil
}

func decode(path string, resp *resty.Response, err error, out any) error {
	if err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrUnavailable, err)
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return &StatusError{Path: path, Code: resp.StatusCode(), Body: truncate(resp.String(), 256)}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrDecode, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
