// Package client is a typed GraphQL client for the todo server.
//
//	c := client.New("http://localhost:4000/graphql")
//	todos, err := c.GetTodos(ctx)
//
// Query results are cached per key (KeyTodos, TodoKey) until a mutation
// invalidates them:
//
//	CreateTodo, DeleteTodo  invalidate KeyTodos
//	UpdateTodo              invalidates KeyTodos and TodoKey(id)
//
// A deleted todo's own key is left alone, so GetTodo may keep serving it
// until Invalidate is called.
//
// Transport failures (connection errors, non-200 responses) feed a circuit
// breaker; while it is open calls fail fast with ErrUnavailable. GraphQL
// errors do not count as failures.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// DefaultEndpoint is used by callers that have no endpoint configured.
const DefaultEndpoint = "http://localhost:4000/graphql"

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("client: endpoint unavailable")

// DefaultFailureThreshold is the number of consecutive transport failures
// that opens the circuit.
const DefaultFailureThreshold = 5

// KeyTodos is the cache key of GetTodos.
const KeyTodos = "todos"

// TodoKey is the cache key of GetTodo(id).
func TodoKey(id int) string { return "todo/" + strconv.Itoa(id) }

// User is a todo owner as selected by the documents.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Todo is a todo as selected by the documents. User is nil for mutation
// results, which do not select the owner.
type Todo struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	User      *User  `json:"user,omitempty"`
}

// Error is a GraphQL error returned by the server.
type Error struct {
	Message string
	Code    string // extensions.code; empty for request-level errors
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Message + " (" + e.Code + ")"
}

// IsCode reports whether err is a *Error carrying code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Client issues the todo documents over HTTP POST. It is safe for concurrent
// use.
type Client struct {
	endpoint string
	http     *http.Client
	logger   zerolog.Logger
	breaker  *gobreaker.CircuitBreaker[*response]

	failureThreshold uint32
	openTimeout      time.Duration

	mu    sync.Mutex
	cache map[string]json.RawMessage
	gen   map[string]uint64 // bumped by Invalidate
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (10s timeout).
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithLogger logs each request at debug level and breaker state changes at
// warn level.
//
//nolint:gocritic // zerolog.Logger is passed by value by design of the library
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.logger = l } }

// WithCircuitBreaker sets how many consecutive transport failures open the
// circuit and how long it stays open before a probe request is let through.
func WithCircuitBreaker(failures uint32, openFor time.Duration) Option {
	return func(c *Client) {
		c.failureThreshold = failures
		c.openTimeout = openFor
	}
}

// New returns a Client for endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:         endpoint,
		http:             &http.Client{Timeout: 10 * time.Second},
		logger:           zerolog.Nop(),
		failureThreshold: DefaultFailureThreshold,
		openTimeout:      30 * time.Second,
		cache:            make(map[string]json.RawMessage),
		gen:              make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "todo-graphql",
		MaxRequests: 1,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.failureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return c
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// GetTodos returns every todo with its owner's id and name.
func (c *Client) GetTodos(ctx context.Context) ([]Todo, error) {
	var out struct {
		GetTodos []Todo `json:"getTodos"`
	}
	if err := c.cached(ctx, KeyTodos, "GetTodos", GetTodosQuery, nil, &out); err != nil {
		return nil, err
	}
	return out.GetTodos, nil
}

// GetTodo returns one todo with its owner, or nil when id does not exist.
func (c *Client) GetTodo(ctx context.Context, id int) (*Todo, error) {
	var out struct {
		GetTodo *Todo `json:"getTodo"`
	}
	vars := map[string]interface{}{"id": id}
	if err := c.cached(ctx, TodoKey(id), "GetTodo", GetTodoQuery, vars, &out); err != nil {
		return nil, err
	}
	return out.GetTodo, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────────────────────

// CreateTodo creates a todo owned by userID.
func (c *Client) CreateTodo(ctx context.Context, title string, userID int) (*Todo, error) {
	var out struct {
		CreateTodo *Todo `json:"createTodo"`
	}
	vars := map[string]interface{}{"title": title, "userId": userID}
	if err := c.do(ctx, "CreateTodo", CreateTodoMutation, vars, &out); err != nil {
		return nil, err
	}
	c.Invalidate(KeyTodos)
	return out.CreateTodo, nil
}

// UpdateTodo changes the non-nil fields of todo id. It returns nil, without
// error, when id does not exist.
func (c *Client) UpdateTodo(ctx context.Context, id int, title *string, completed *bool) (*Todo, error) {
	var out struct {
		UpdateTodo *Todo `json:"updateTodo"`
	}
	vars := map[string]interface{}{"id": id}
	if title != nil {
		vars["title"] = *title
	}
	if completed != nil {
		vars["completed"] = *completed
	}
	if err := c.do(ctx, "UpdateTodo", UpdateTodoMutation, vars, &out); err != nil {
		return nil, err
	}
	c.Invalidate(KeyTodos, TodoKey(id))
	return out.UpdateTodo, nil
}

// DeleteTodo removes todo id and reports whether it existed.
func (c *Client) DeleteTodo(ctx context.Context, id int) (bool, error) {
	var out struct {
		DeleteTodo *bool `json:"deleteTodo"`
	}
	if err := c.do(ctx, "DeleteTodo", DeleteTodoMutation, map[string]interface{}{"id": id}, &out); err != nil {
		return false, err
	}
	c.Invalidate(KeyTodos)
	return out.DeleteTodo != nil && *out.DeleteTodo, nil
}

// Invalidate drops cached results; the next read of each key refetches.
func (c *Client) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.cache, k)
		c.gen[k]++
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Transport
// ─────────────────────────────────────────────────────────────────────────────

type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code string `json:"code"`
		} `json:"extensions"`
	} `json:"errors"`
}

// cached serves key from the cache, fetching it on a miss. A fetch that
// overlaps an Invalidate of key is returned but not stored.
func (c *Client) cached(ctx context.Context, key, op, doc string, vars map[string]interface{}, out interface{}) error {
	c.mu.Lock()
	data, ok := c.cache[key]
	gen := c.gen[key]
	c.mu.Unlock()

	if !ok {
		var err error
		if data, err = c.exec(ctx, op, doc, vars); err != nil {
			return err
		}
		c.mu.Lock()
		if c.gen[key] == gen {
			c.cache[key] = data
		}
		c.mu.Unlock()
	}
	return decodeData(op, data, out)
}

func (c *Client) do(ctx context.Context, op, doc string, vars map[string]interface{}, out interface{}) error {
	data, err := c.exec(ctx, op, doc, vars)
	if err != nil {
		return err
	}
	return decodeData(op, data, out)
}

// exec posts one document and returns its data. The first GraphQL error, if
// any, is returned as *Error.
func (c *Client) exec(ctx context.Context, op, doc string, vars map[string]interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(request{Query: doc, OperationName: op, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("client: %s: encode: %w", op, err)
	}

	resp, err := c.breaker.Execute(func() (*response, error) {
		return c.post(ctx, op, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	if err != nil {
		return nil, err
	}

	if len(resp.Errors) > 0 {
		e := resp.Errors[0]
		return nil, &Error{Message: e.Message, Code: e.Extensions.Code}
	}
	return resp.Data, nil
}

// post is one HTTP round trip. Only transport-level problems are errors.
func (c *Client) post(ctx context.Context, op string, body []byte) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("client: %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s: %w", op, err)
	}
	defer res.Body.Close()

	c.logger.Debug().
		Str("operation", op).
		Int("status", res.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("graphql request")

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("client: %s: unexpected status %d: %s", op, res.StatusCode, bytes.TrimSpace(snippet))
	}

	var resp response
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("client: %s: decode: %w", op, err)
	}
	return &resp, nil
}

func decodeData(op string, data json.RawMessage, out interface{}) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: %s: decode data: %w", op, err)
	}
	return nil
}
