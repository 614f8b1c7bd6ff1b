package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/domain"
	pfirestore "github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/firestore"
	"github.com/NeerajSreeMailee/Genius-Technology-2-sub000/internal/platform/pagination"
)

// Logger receives mapping failures for documents skipped during list queries.
type Logger func(ctx context.Context, event string, fields map[string]any)

// Option customises a repository.
type Option func(*options)

type options struct {
	logger Logger
	now    func() time.Time
}

// WithLogger reports documents that cannot be mapped to domain records.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the timestamp source used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		logger: func(context.Context, string, map[string]any) {},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// newestFirst orders by createdAt desc with the document id as tie-breaker and
// fetches one extra record to detect the next page.
func newestFirst(page pagination.Params) pfirestore.QueryBuilder {
	size := page.PageSize
	if size <= 0 {
		size = pagination.DefaultPageSize
	}
	return func(q firestore.Query) firestore.Query {
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if !page.Cursor.IsZero() {
			q = q.StartAfter(page.Cursor.CreatedAt, page.Cursor.ID)
		}
		return q.Limit(size + 1)
	}
}

// collectPage maps docs, skipping records the mapper rejects, and derives the next page token.
func collectPage[D any, T any](ctx context.Context, o options, collection string, docs []pfirestore.Document[D], page pagination.Params, mapDoc func(pfirestore.Document[D]) (T, error), createdAt func(T) time.Time) domain.CursorPage[T] {
	size := page.PageSize
	if size <= 0 {
		size = pagination.DefaultPageSize
	}
	hasMore := len(docs) > size
	if hasMore {
		docs = docs[:size]
	}

	result := domain.CursorPage[T]{Items: make([]T, 0, len(docs))}
	for _, doc := range docs {
		item, err := mapDoc(doc)
		if err != nil {
			o.logger(ctx, "repository.document_rejected", map[string]any{
				"collection": collection,
				"documentId": doc.ID,
				"error":      err,
			})
			continue
		}
		result.Items = append(result.Items, item)
	}
	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		lastItem, err := mapDoc(last)
		cursor := pagination.Cursor{ID: last.ID, CreatedAt: last.CreateTime}
		if err == nil {
			cursor.CreatedAt = createdAt(lastItem)
		}
		result.NextPageToken = pagination.EncodeToken(cursor)
	}
	return result
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
