package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/listas/listas-api/internal/domain"
	"github.com/listas/listas-api/internal/events"
	"github.com/listas/listas-api/internal/platform/logger"
	"github.com/listas/listas-api/internal/store"
	"github.com/listas/listas-api/internal/task"
)

// Import formats accepted by the import service.
const (
	// ImportFormatText is newline-delimited URLs.
	ImportFormatText = "text"

	// ImportFormatFeed is an RSS or Atom document; item links become URLs.
	ImportFormatFeed = "feed"
)

// ImportParams carries an import request.
type ImportParams struct {
	ListID  uuid.UUID
	UserID  uuid.UUID
	Payload string
	// Format selects the parser; empty defaults to ImportFormatText.
	Format string
}

// ImportService turns bulk payloads into create_resources work.
type ImportService interface {
	// Import parses the payload into URLs and emits one create_resources
	// event for the batch. Returns the number of URLs queued.
	// Invalid lines are dropped at the parse stage; ErrEmptyImport is
	// returned when nothing valid remains.
	Import(ctx context.Context, params ImportParams) (int, error)
}

// importServiceImpl implements the ImportService interface
type importServiceImpl struct {
	listStore store.ListStore
	emitter   events.EventEmitter
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewImportService creates a new ImportService.
// It returns an error if any of the required dependencies are nil.
func NewImportService(
	listStore store.ListStore,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (ImportService, error) {
	if listStore == nil {
		return nil, errors.New("list store cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &importServiceImpl{
		listStore: listStore,
		emitter:   emitter,
		validate:  validator.New(),
		logger:    logger.With(slog.String("component", "import_service")),
	}, nil
}

// Import implements ImportService.Import
func (s *importServiceImpl) Import(ctx context.Context, params ImportParams) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	list, err := s.listStore.GetByID(ctx, params.ListID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return 0, fmt.Errorf("%w: list %s", store.ErrListNotFound, params.ListID)
		}
		return 0, fmt.Errorf("failed to load list: %w", err)
	}
	if list.UserID != params.UserID {
		return 0, fmt.Errorf("%w: list %s", ErrNotOwned, params.ListID)
	}

	var urls []string
	switch params.Format {
	case "", ImportFormatText:
		urls = s.parseText(params.Payload)
	case ImportFormatFeed:
		urls, err = s.parseFeed(params.Payload)
		if err != nil {
			log.Warn("failed to parse feed payload", slog.String("error", err.Error()))
			return 0, fmt.Errorf("%w: %v", ErrEmptyImport, err)
		}
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedImportFormat, params.Format)
	}

	if len(urls) == 0 {
		return 0, ErrEmptyImport
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeCreateResources,
		task.CreateResourcesPayload{
			ListID: params.ListID,
			UserID: params.UserID,
			URLs:   urls,
		})
	if err != nil {
		return 0, fmt.Errorf("failed to build import event: %w", err)
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit import event",
			slog.String("list_id", params.ListID.String()),
			slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to queue import: %w", err)
	}

	log.Info("import queued",
		slog.String("list_id", params.ListID.String()),
		slog.Int("url_count", len(urls)))
	return len(urls), nil
}

// parseText extracts URLs from newline-delimited text, dropping blank and
// invalid lines.
func (s *importServiceImpl) parseText(payload string) []string {
	var urls []string
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !s.isImportableURL(line) {
			s.logger.Debug("dropping invalid import line", slog.String("line", line))
			continue
		}
		urls = append(urls, line)
	}
	return urls
}

// parseFeed extracts item links from an RSS or Atom document.
func (s *importServiceImpl) parseFeed(payload string) ([]string, error) {
	feed, err := gofeed.NewParser().ParseString(payload)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" || !s.isImportableURL(link) {
			continue
		}
		urls = append(urls, link)
	}
	return urls, nil
}

// isImportableURL applies both the generic URL rule and the stricter
// http/https requirement resources carry.
func (s *importServiceImpl) isImportableURL(candidate string) bool {
	if err := s.validate.Var(candidate, "url"); err != nil {
		return false
	}
	return domain.IsValidResourceURL(candidate)
}
