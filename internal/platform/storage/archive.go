package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

const defaultSignedURLTTL = 15 * time.Minute

var (
	errInvalidBucket = errors.New("storage: bucket name is required")
	errInvalidObject = errors.New("storage: order id and invoice number are required")

	unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// bucket is the subset of a Cloud Storage bucket used by InvoiceArchive.
type bucket interface {
	NewWriter(ctx context.Context, object, contentType string) io.WriteCloser
	SignedURL(object string, opts *gcs.SignedURLOptions) (string, error)
}

type gcsBucket struct {
	handle *gcs.BucketHandle
}

func (b gcsBucket) NewWriter(ctx context.Context, object, contentType string) io.WriteCloser {
	w := b.handle.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "private, max-age=0"
	return w
}

func (b gcsBucket) SignedURL(object string, opts *gcs.SignedURLOptions) (string, error) {
	return b.handle.SignedURL(object, opts)
}

// InvoiceArchive stores invoice PDFs under invoices/{orderId}/{invoiceNumber}.pdf
// and hands out short-lived V4 signed download URLs.
type InvoiceArchive struct {
	bucket      bucket
	signerEmail string
	ttl         time.Duration
	now         func() time.Time
}

// ArchiveOption customises an InvoiceArchive.
type ArchiveOption func(*InvoiceArchive)

// WithSignerEmail sets the service account used as GoogleAccessID; signing goes through IAM.
func WithSignerEmail(email string) ArchiveOption {
	return func(a *InvoiceArchive) { a.signerEmail = strings.TrimSpace(email) }
}

// WithSignedURLTTL sets how long download links stay valid.
func WithSignedURLTTL(ttl time.Duration) ArchiveOption {
	return func(a *InvoiceArchive) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock injects a time source.
func WithClock(now func() time.Time) ArchiveOption {
	return func(a *InvoiceArchive) {
		if now != nil {
			a.now = now
		}
	}
}

// NewInvoiceArchive binds an archive to bucketName on client.
func NewInvoiceArchive(client *gcs.Client, bucketName string, opts ...ArchiveOption) (*InvoiceArchive, error) {
	if client == nil {
		return nil, errors.New("storage: client is required")
	}
	if strings.TrimSpace(bucketName) == "" {
		return nil, errInvalidBucket
	}
	return newInvoiceArchive(gcsBucket{handle: client.Bucket(strings.TrimSpace(bucketName))}, opts...), nil
}

func newInvoiceArchive(b bucket, opts ...ArchiveOption) *InvoiceArchive {
	archive := &InvoiceArchive{bucket: b, ttl: defaultSignedURLTTL, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(archive)
		}
	}
	return archive
}

// InvoiceObjectPath returns the object key for an order's invoice.
func InvoiceObjectPath(orderID, invoiceNumber string) (string, error) {
	orderID = unsafePathChars.ReplaceAllString(strings.TrimSpace(orderID), "_")
	invoiceNumber = unsafePathChars.ReplaceAllString(strings.TrimSpace(invoiceNumber), "_")
	if orderID == "" || invoiceNumber == "" {
		return "", errInvalidObject
	}
	return fmt.Sprintf("invoices/%s/%s.pdf", orderID, invoiceNumber), nil
}

// Archive streams pdf into the bucket and returns the object path.
func (a *InvoiceArchive) Archive(ctx context.Context, orderID, invoiceNumber string, pdf io.Reader) (string, error) {
	object, err := InvoiceObjectPath(orderID, invoiceNumber)
	if err != nil {
		return "", err
	}
	w := a.bucket.NewWriter(ctx, object, "application/pdf")
	if _, err := io.Copy(w, pdf); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: finalize %s: %w", object, err)
	}
	return object, nil
}

// SignedURL returns a GET URL for object valid for the configured TTL.
func (a *InvoiceArchive) SignedURL(object string) (string, time.Time, error) {
	if strings.TrimSpace(object) == "" {
		return "", time.Time{}, errInvalidObject
	}
	expires := a.now().Add(a.ttl)
	url, err := a.bucket.SignedURL(object, &gcs.SignedURLOptions{
		GoogleAccessID: a.signerEmail,
		Method:         http.MethodGet,
		Expires:        expires,
		Scheme:         gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("storage: sign %s: %w", object, err)
	}
	return url, expires, nil
}
