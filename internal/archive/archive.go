// Package archive keeps copies of raw provider payloads outside the database.
package archive

import (
	"context"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type Archiver interface {
	Archive(ctx context.Context, name string, payload []byte) error
}

// Nop discards payloads; used when no bucket is configured.
type Nop struct{}

func (Nop) Archive(context.Context, string, []byte) error { return nil }

type GCS struct {
	client *storage.Client
	bucket string
	prefix string
	now    func() time.Time
}

func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: "wayforpay", now: time.Now}, nil
}

// ObjectName is where a payload with the given name lands for a given day.
func ObjectName(prefix, name string, at time.Time) string {
	return path.Join(prefix, at.UTC().Format("2006-01-02"), fmt.Sprintf("%s-%d.json", name, at.UnixNano()))
}

func (g *GCS) Archive(ctx context.Context, name string, payload []byte) error {
	w := g.client.Bucket(g.bucket).Object(ObjectName(g.prefix, name, g.now())).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (g *GCS) Close() error {
	return g.client.Close()
}
