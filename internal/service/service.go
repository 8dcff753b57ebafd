package service

import (
	"context"
	"strings"
	"time"

	"github.com/darkodi/shortlink/internal/logger"
	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/validator"
)

// Store is the durable mapping store. Save inserts when the mapping has no
// ID yet and updates otherwise; FindByCode returns repository.ErrNotFound
// for unknown codes; Delete is idempotent; Save reports
// repository.ErrDuplicateCode when the code is already taken.
type Store interface {
	Save(ctx context.Context, m *model.Mapping) error
	FindByCode(ctx context.Context, code string) (*model.Mapping, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Delete(ctx context.Context, id int64) error
	FindByOwner(ctx context.Context, owner string) ([]*model.Mapping, error)
}

// Cache is the advisory code -> URL cache. A ttl of 0 means no expiration.
type Cache interface {
	Get(ctx context.Context, code string) (string, bool, error)
	Set(ctx context.Context, code, url string, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

// ExpiredPurger is implemented by stores that can delete expired mappings in bulk
type ExpiredPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a URLService; zero values fall back to defaults
type Options struct {
	BaseURL             string
	CodeLength          int
	MaxURLLength        int
	MaxGenerateAttempts int
	DefaultExpiry       time.Duration
	ClickWorkers        int
	ClickQueueSize      int
	Logger              *logger.Logger
	Now                 func() time.Time
}

func (o *Options) setDefaults() {
	if o.CodeLength == 0 {
		o.CodeLength = 7
	}
	if o.MaxURLLength == 0 {
		o.MaxURLLength = 2048
	}
	if o.MaxGenerateAttempts == 0 {
		o.MaxGenerateAttempts = 10
	}
	if o.DefaultExpiry == 0 {
		o.DefaultExpiry = 30 * 24 * time.Hour
	}
	if o.ClickWorkers == 0 {
		o.ClickWorkers = 4
	}
	if o.ClickQueueSize == 0 {
		o.ClickQueueSize = 1024
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
}

// URLService implements the write path (Shorten, ListMappings,
// DeleteMapping) and the read path (Resolve, Stats) on top of a Store and
// a Cache.
type URLService struct {
	store         Store
	cache         Cache
	codes         *CodeGenerator
	clicks        *clickRecorder
	validator     *validator.URLValidator
	log           *logger.Logger
	now           func() time.Time
	baseURL       string // e.g., "http://localhost:8080"
	defaultExpiry time.Duration
	maxAttempts   int
}

// NewURLService creates a new service instance and starts its click workers
func NewURLService(store Store, cache Cache, opts Options) *URLService {
	opts.setDefaults()
	log := opts.Logger.With("component", "url_service")

	return &URLService{
		store:         store,
		cache:         cache,
		codes:         NewCodeGenerator(store, opts.CodeLength, opts.MaxGenerateAttempts),
		clicks:        newClickRecorder(store, log, opts.ClickWorkers, opts.ClickQueueSize),
		validator:     validator.NewURLValidator().WithMaxLength(opts.MaxURLLength),
		log:           log,
		now:           opts.Now,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		defaultExpiry: opts.DefaultExpiry,
		maxAttempts:   opts.MaxGenerateAttempts,
	}
}

// WaitForClicks blocks until every dispatched click increment has finished
func (s *URLService) WaitForClicks() {
	s.clicks.Wait()
}

// Close stops accepting click increments and waits for in-flight ones,
// bounded by ctx
func (s *URLService) Close(ctx context.Context) error {
	return s.clicks.Close(ctx)
}

// Health pings the store and the cache when they support it
func (s *URLService) Health(ctx context.Context) map[string]error {
	status := map[string]error{}
	if p, ok := s.store.(pinger); ok {
		status["store"] = p.Ping(ctx)
	}
	if p, ok := s.cache.(pinger); ok {
		status["cache"] = p.Ping(ctx)
	}
	return status
}

func (s *URLService) response(m *model.Mapping) model.MappingResponse {
	return model.NewMappingResponse(m, s.baseURL)
}
