package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultStaleTime is how long a cached value is served without
	// triggering a background refresh.
	DefaultStaleTime = 5 * time.Minute
	// DefaultCacheTime is how long a cached value is usable at all.
	DefaultCacheTime = 10 * time.Minute

	keyPrefix = "query:"
)

// Fetcher produces the value for a query. It may block; cancellation is
// signalled through the context.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Options configures a Query's staleness and polling behavior.
type Options struct {
	StaleTime       time.Duration
	CacheTime       time.Duration
	RefetchInterval time.Duration // 0 disables polling
}

// State is a snapshot of a query's progress.
type State[T any] struct {
	Data        T
	IsLoading   bool
	IsError     bool
	Err         error
	LastFetched time.Time
}

type envelope[T any] struct {
	Data        T     `json:"data"`
	LastFetched int64 `json:"last_fetched"` // unix millis
}

// Query is a stale-while-revalidate loader for a single cache key. On
// activation it hydrates from the session cache when a fresh-enough entry
// exists, refreshing in the background once past the staleness threshold;
// otherwise it invokes the fetcher. Successful fetches are persisted back
// to the cache. Overlapping fetches (manual refetch racing an interval
// refetch) are not deduplicated; callers own that concern.
type Query[T any] struct {
	key   string
	cache SessionCache
	fetch Fetcher[T]
	opts  Options

	mu     sync.Mutex
	state  State[T]
	onData func(T)

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New creates a query for the given cache key.
func New[T any](key string, cache SessionCache, fetch Fetcher[T], opts Options) *Query[T] {
	if opts.StaleTime <= 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.CacheTime <= 0 {
		opts.CacheTime = DefaultCacheTime
	}
	return &Query[T]{key: key, cache: cache, fetch: fetch, opts: opts}
}

// OnData registers a callback invoked after hydration and after every
// successful fetch. Must be set before Start.
func (q *Query[T]) OnData(fn func(T)) {
	q.mu.Lock()
	q.onData = fn
	q.mu.Unlock()
}

// Start activates the query: hydrate from cache if possible, fetch
// otherwise, and begin interval polling when configured. Start does not
// block on the fetcher.
func (q *Query[T]) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.mu.Unlock()

	needFetch := true
	if env, ok := q.load(q.ctx); ok {
		fetchedAt := time.UnixMilli(env.LastFetched)
		age := time.Since(fetchedAt)
		if age < q.opts.CacheTime {
			q.mu.Lock()
			q.state = State[T]{Data: env.Data, LastFetched: fetchedAt}
			onData := q.onData
			q.mu.Unlock()
			if onData != nil {
				onData(env.Data)
			}
			// Hydrated display stays up; refresh only once stale.
			needFetch = age >= q.opts.StaleTime
		}
	}

	if needFetch {
		q.mu.Lock()
		if q.state.LastFetched.IsZero() {
			q.state.IsLoading = true
		}
		q.mu.Unlock()
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.fetchOnce(q.ctx)
		}()
	}

	if q.opts.RefetchInterval > 0 {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			ticker := time.NewTicker(q.opts.RefetchInterval)
			defer ticker.Stop()
			for {
				select {
				case <-q.ctx.Done():
					return
				case <-ticker.C:
					q.fetchOnce(q.ctx)
				}
			}
		}()
	}
}

// Refetch invokes the fetcher immediately and waits for it to settle.
func (q *Query[T]) Refetch() {
	q.mu.Lock()
	ctx := q.ctx
	q.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	q.fetchOnce(ctx)
}

// State returns the current snapshot.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Stop cancels polling and waits for in-flight work. The query cannot be
// restarted.
func (q *Query[T]) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	q.wg.Wait()
}

func (q *Query[T]) fetchOnce(ctx context.Context) {
	q.mu.Lock()
	q.state.IsLoading = true
	q.state.IsError = false
	q.state.Err = nil
	q.mu.Unlock()

	data, err := q.fetch(ctx)
	if err != nil {
		slog.Error("query fetch failed", "key", q.key, "error", err)
		q.mu.Lock()
		q.state = State[T]{IsError: true, Err: err}
		q.mu.Unlock()
		return
	}

	fetchedAt := time.Now()
	q.mu.Lock()
	q.state = State[T]{Data: data, LastFetched: fetchedAt}
	onData := q.onData
	q.mu.Unlock()

	q.persist(ctx, data, fetchedAt)
	if onData != nil {
		onData(data)
	}
}

func (q *Query[T]) load(ctx context.Context) (envelope[T], bool) {
	var env envelope[T]
	raw, err := q.cache.Get(ctx, keyPrefix+q.key)
	if err != nil {
		if err != ErrCacheMiss {
			slog.Warn("query cache read failed", "key", q.key, "error", err)
		}
		return env, false
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		slog.Warn("query cache entry corrupt", "key", q.key, "error", err)
		return env, false
	}
	return env, true
}

func (q *Query[T]) persist(ctx context.Context, data T, fetchedAt time.Time) {
	raw, err := json.Marshal(envelope[T]{Data: data, LastFetched: fetchedAt.UnixMilli()})
	if err != nil {
		slog.Warn("query cache marshal failed", "key", q.key, "error", err)
		return
	}
	if err := q.cache.Set(ctx, keyPrefix+q.key, string(raw), q.opts.CacheTime); err != nil {
		slog.Warn("query cache write failed", "key", q.key, "error", err)
	}
}
