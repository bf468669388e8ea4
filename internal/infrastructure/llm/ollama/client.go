package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/nvoronin/libris/internal/infrastructure/resilience"
)

// Client talks to an Ollama server. One client is shared by the whole
// process; the permit pool caps simultaneous in-flight requests and the rate
// limiter smooths request bursts against the model server.
type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client

	permits  *semaphore.Weighted
	limiter  *rate.Limiter
	executor *resilience.Executor
}

type Options struct {
	Permits           int64
	RequestsPerSecond float64
	Timeout           time.Duration
	Resilience        *resilience.Executor
}

func New(baseURL, genModel, embedModel string, options Options) *Client {
	if options.Permits <= 0 {
		options.Permits = 4
	}
	if options.RequestsPerSecond <= 0 {
		options.RequestsPerSecond = 2
	}
	if options.Timeout <= 0 {
		options.Timeout = 120 * time.Second
	}
	if options.Resilience == nil {
		options.Resilience = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: options.Timeout},
		permits:    semaphore.NewWeighted(options.Permits),
		limiter:    rate.NewLimiter(rate.Limit(options.RequestsPerSecond), int(options.Permits)),
		executor:   options.Resilience,
	}
}

// call serializes access through the permit pool, then runs the request under
// the retry/breaker executor. Callers that exceed the permit count block
// until a permit frees.
func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if err := c.permits.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.permits.Release(1)

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := c.executor.Execute(ctx, operation, fn, classifyOllamaError)
	return wrapTemporaryIfNeeded(operation, err)
}

func (c *Client) generateText(ctx context.Context, operation, prompt string) (string, error) {
	return c.generate(ctx, operation, map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	})
}

func (c *Client) generateJSON(ctx context.Context, operation, prompt string) (string, error) {
	return c.generate(ctx, operation, map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	})
}

func (c *Client) generate(ctx context.Context, operation string, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	err := c.call(ctx, operation, func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/generate", reqBody, &response, operation)
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
