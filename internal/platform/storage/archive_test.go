package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
)

type memoryWriter struct {
	buf      bytes.Buffer
	closed   bool
	closeErr error
}

func (w *memoryWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memoryWriter) Close() error {
	w.closed = true
	return w.closeErr
}

type fakeBucket struct {
	writers     map[string]*memoryWriter
	contentType string
	closeErr    error
	signOpts    *gcs.SignedURLOptions
}

func (b *fakeBucket) NewWriter(_ context.Context, object, contentType string) io.WriteCloser {
	if b.writers == nil {
		b.writers = map[string]*memoryWriter{}
	}
	w := &memoryWriter{closeErr: b.closeErr}
	b.writers[object] = w
	b.contentType = contentType
	return w
}

func (b *fakeBucket) SignedURL(object string, opts *gcs.SignedURLOptions) (string, error) {
	b.signOpts = opts
	return "https://storage.googleapis.com/invoices-bucket/" + object + "?X-Goog-Signature=abc", nil
}

func TestInvoiceObjectPath(t *testing.T) {
	path, err := InvoiceObjectPath("ord_01HZX", "INV/2025/0042")
	require.NoError(t, err)
	require.Equal(t, "invoices/ord_01HZX/INV_2025_0042.pdf", path)

	_, err = InvoiceObjectPath("ord_1", " ")
	require.Error(t, err)
}

func TestInvoiceArchiveWritesPDF(t *testing.T) {
	b := &fakeBucket{}
	archive := newInvoiceArchive(b)

	object, err := archive.Archive(context.Background(), "ord_1", "INV-7", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	require.Equal(t, "invoices/ord_1/INV-7.pdf", object)
	require.Equal(t, "application/pdf", b.contentType)
	require.True(t, b.writers[object].closed)
	require.Equal(t, "%PDF-1.7", b.writers[object].buf.String())
}

func TestInvoiceArchiveReportsFinalizeError(t *testing.T) {
	archive := newInvoiceArchive(&fakeBucket{closeErr: errors.New("precondition failed")})
	_, err := archive.Archive(context.Background(), "ord_1", "INV-7", strings.NewReader("pdf"))
	require.Error(t, err)
}

func TestInvoiceArchiveSignedURL(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	b := &fakeBucket{}
	archive := newInvoiceArchive(b,
		WithSignerEmail("invoices@project.iam.gserviceaccount.com"),
		WithSignedURLTTL(10*time.Minute),
		WithClock(func() time.Time { return now }),
	)

	url, expires, err := archive.SignedURL("invoices/ord_1/INV-7.pdf")
	require.NoError(t, err)
	require.Contains(t, url, "invoices/ord_1/INV-7.pdf")
	require.Equal(t, now.Add(10*time.Minute), expires)
	require.Equal(t, "GET", b.signOpts.Method)
	require.Equal(t, gcs.SigningSchemeV4, b.signOpts.Scheme)
	require.Equal(t, "invoices@project.iam.gserviceaccount.com", b.signOpts.GoogleAccessID)
}
