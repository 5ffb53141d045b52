package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
)

// Default configuration values.
const (
	defaultTimeout           = 35 * time.Second
	defaultTransactionsQueue = "transactions_queue"
	defaultResultsQueue      = "results_queue"

	pullPath = "/pull-n"
	pushPath = "/push-n"

	maxBodyInLog = 200
)

// Client — синхронный адаптер к внешнему сервису очередей.
//
// Client никогда не возвращает ошибку вызывающему коду:
//   - Pull при любой проблеме возвращает пустой slice
//   - Push при любой проблеме возвращает false
//
// Все проблемы только логируются. Таймаут один для pull и push.
type Client struct {
	http              *resty.Client
	transactionsQueue string
	resultsQueue      string
	timeout           time.Duration
	logger            *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL — адрес сервиса очередей, например http://localhost:8003.
	BaseURL string

	// TransactionsQueue — очередь, из которой читаются tasks.
	TransactionsQueue string

	// ResultsQueue — очередь, в которую пишутся results.
	ResultsQueue string

	// Timeout — таймаут HTTP-запроса (default: 35s).
	// Должен быть больше long-poll ожидания на стороне сервиса.
	Timeout time.Duration

	// Logger
	Logger *slog.Logger
}

// pushRequest — тело запроса /push-n.
type pushRequest struct {
	QueueName string          `json:"queue_name"`
	Messages  []domain.Result `json:"messages"`
}

// New создаёт новый Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	txQueue := cfg.TransactionsQueue
	if txQueue == "" {
		txQueue = defaultTransactionsQueue
	}

	resultsQueue := cfg.ResultsQueue
	if resultsQueue == "" {
		resultsQueue = defaultResultsQueue
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:              httpClient,
		transactionsQueue: txQueue,
		resultsQueue:      resultsQueue,
		timeout:           timeout,
		logger:            logger,
	}
}

// Pull запрашивает до maxCount tasks из очереди transactions.
//
// Возвращает пустой slice (и не ходит в сеть) при maxCount <= 0.
// Возвращает пустой slice при 204, таймауте, ошибке транспорта,
// некорректном ответе или любом другом статусе.
// Если хотя бы один элемент не декодируется, отбрасывается весь batch.
func (c *Client) Pull(ctx context.Context, maxCount int) []domain.Task {
	if maxCount <= 0 {
		return nil
	}
	if c.isClosed() {
		c.logger.Warn("pull on closed queue client")
		return nil
	}

	c.logger.Debug("pulling tasks",
		"queue", c.transactionsQueue,
		"count", maxCount,
		"timeout", c.timeout,
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"queue-name": c.transactionsQueue,
			"count":      strconv.Itoa(maxCount),
		}).
		Get(pullPath)
	if err != nil {
		if isTimeout(err) {
			c.logger.Info("pull timed out", "timeout", c.timeout)
		} else if ctx.Err() == nil {
			c.logger.Warn("pull request failed", "error", err)
		}
		return nil
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNoContent:
		c.logger.Debug("queue empty", "queue", c.transactionsQueue)
		return nil
	default:
		c.logger.Warn("unexpected pull status",
			"status", resp.StatusCode(),
			"body", truncate(resp.String(), maxBodyInLog),
		)
		return nil
	}

	tasks, err := decodeTasks(resp.Body())
	if err != nil {
		c.logger.Warn("malformed pull response",
			"error", err,
			"body", truncate(resp.String(), maxBodyInLog),
		)
		return nil
	}

	c.logger.Debug("pulled tasks", "count", len(tasks))
	return tasks
}

// Push отправляет batch results в очередь results.
//
// true только при 201. 409 (очередь переполнена) — batch отброшен,
// повторной отправки нет. Пустой batch — успех без запроса.
func (c *Client) Push(ctx context.Context, results []domain.Result) bool {
	if len(results) == 0 {
		return true
	}
	if c.isClosed() {
		c.logger.Warn("push on closed queue client", "count", len(results))
		return false
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(pushRequest{QueueName: c.resultsQueue, Messages: results}).
		Post(pushPath)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("push timed out", "count", len(results), "timeout", c.timeout)
		} else {
			c.logger.Warn("push request failed", "count", len(results), "error", err)
		}
		return false
	}

	switch resp.StatusCode() {
	case http.StatusCreated:
		c.logger.Info("pushed results", "count", len(results))
		return true
	case http.StatusConflict:
		c.logger.Warn("results queue over capacity, batch dropped",
			"count", len(results),
			"body", truncate(resp.String(), maxBodyInLog),
		)
		return false
	default:
		c.logger.Warn("unexpected push status",
			"status", resp.StatusCode(),
			"count", len(results),
			"body", truncate(resp.String(), maxBodyInLog),
		)
		return false
	}
}

// Close освобождает пул HTTP-соединений. Повторный вызов безопасен.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.http.GetClient().CloseIdleConnections()

	c.logger.Debug("queue client closed")
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// decodeTasks разбирает ответ pull-n: JSON-массив строк,
// каждая из которых — JSON-объект task.
func decodeTasks(body []byte) ([]domain.Task, error) {
	var raw []string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, 0, len(raw))
	for _, item := range raw {
		task, err := domain.DecodeTask(item)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// isTimeout проверяет, что ошибка — таймаут запроса.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
