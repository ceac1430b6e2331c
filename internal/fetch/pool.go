// Package fetch implements the gateway's HTTP origin-fetch collaborator
// (spec.md Section 6): a worker pool that executes HTTP requests on
// behalf of WSP methods and reports completions asynchronously so the
// WSP application layer never blocks an FSM goroutine on origin I/O.
//
// Grounded on internal/gobgp/client.go's request/response-by-id shape
// (callers submit work keyed by an id, a separate path reports
// completions back by that id) and on cmd/gobfd/main.go's
// errgroup.Group-supervised worker goroutines.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrPoolClosed indicates StartRequest was called after Close.
var ErrPoolClosed = errors.New("fetch: pool is closed")

// ErrResultBufferFull indicates a worker could not enqueue a completed
// Result because the results channel's consumer has fallen behind.
var ErrResultBufferFull = errors.New("fetch: result buffer full")

// Request is one queued HTTP fetch.
type Request struct {
	ID      uint32
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Result is a completed fetch, matched back to its Request by ID.
type Result struct {
	ID       uint32
	Status   int
	FinalURL string
	Headers  http.Header
	Body     []byte
	Err      error
}

// Pool runs HTTP requests on a fixed-size worker pool, reporting
// completions on a single Results channel keyed by request ID.
type Pool struct {
	client  *http.Client
	logger  *slog.Logger
	workers int
	timeout time.Duration

	queue   chan Request
	results chan Result
	nextID  atomic.Uint32

	g       *errgroup.Group
	gCtx    context.Context
	closing chan struct{}
}

// Config controls pool sizing and the HTTP client used for fetches.
type Config struct {
	// Workers is the number of concurrent fetch goroutines.
	Workers int
	// RequestTimeout bounds each individual fetch.
	RequestTimeout time.Duration
	// QueueDepth is the pending-request buffer size.
	QueueDepth int
}

// New starts a Pool of cfg.Workers goroutines under ctx, supervised by
// an errgroup the way cmd/gobfd/main.go supervises its daemon tasks.
// The pool stops all workers when ctx is cancelled or Close is called.
func New(ctx context.Context, cfg Config, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 64
	}

	g, gCtx := errgroup.WithContext(ctx)

	p := &Pool{
		client:  &http.Client{},
		logger:  logger.With(slog.String("component", "fetch.pool")),
		workers: cfg.Workers,
		timeout: cfg.RequestTimeout,
		queue:   make(chan Request, cfg.QueueDepth),
		results: make(chan Result, cfg.QueueDepth),
		g:       g,
		gCtx:    gCtx,
		closing: make(chan struct{}),
	}

	for i := 0; i < cfg.Workers; i++ {
		g.Go(p.runWorker)
	}

	return p
}

// StartRequest enqueues req for fetching and returns a stable ID the
// caller uses to correlate the eventual Result. The ID is assigned if
// req.ID is zero.
func (p *Pool) StartRequest(req Request) (uint32, error) {
	if req.ID == 0 {
		req.ID = p.nextID.Add(1)
	}

	select {
	case <-p.closing:
		return 0, ErrPoolClosed
	case <-p.gCtx.Done():
		return 0, ErrPoolClosed
	default:
	}

	select {
	case p.queue <- req:
		return req.ID, nil
	case <-p.gCtx.Done():
		return 0, ErrPoolClosed
	}
}

// Results returns the channel of completed fetches. Each finished fetch,
// failed or not, yields one Result, except that a Result is dropped (with
// a logged ErrResultBufferFull warning) when the channel's buffer is full,
// and none is sent once the pool's context is done.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting new requests and waits for in-flight workers
// to drain.
func (p *Pool) Close() error {
	select {
	case <-p.closing:
	default:
		close(p.closing)
		close(p.queue)
	}
	if err := p.g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("fetch pool shutdown: %w", err)
	}
	return nil
}

func (p *Pool) runWorker() error {
	for {
		select {
		case <-p.gCtx.Done():
			return nil
		case req, ok := <-p.queue:
			if !ok {
				return nil
			}
			p.deliver(p.execute(req))
		}
	}
}

func (p *Pool) execute(req Request) Result {
	ctx := p.gCtx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.gCtx, p.timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return Result{ID: req.ID, Err: fmt.Errorf("build request for %s: %w", req.URL, err)}
	}
	httpReq.Header = req.Headers.Clone()

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Result{ID: req.ID, Err: fmt.Errorf("fetch %s: %w", req.URL, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{ID: req.ID, Status: resp.StatusCode, Err: fmt.Errorf("read body from %s: %w", req.URL, err)}
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return Result{
		ID:       req.ID,
		Status:   resp.StatusCode,
		FinalURL: finalURL,
		Headers:  resp.Header.Clone(),
		Body:     body,
	}
}

func (p *Pool) deliver(res Result) {
	select {
	case p.results <- res:
	case <-p.gCtx.Done():
	default:
		p.logger.Warn("dropping fetch result, consumer too slow",
			slog.Any("id", res.ID), slog.String("error", ErrResultBufferFull.Error()))
	}
}
