// Package catalogfile loads catalog records from a JSON document stored on
// local disk or in S3
package catalogfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/ports/outbound"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedSource = errors.New("unsupported catalog source")
	ErrEmptyCatalog      = errors.New("catalog document has no items")
)

// ObjectGetter is the slice of the S3 API the loader needs
type ObjectGetter interface {
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// Config holds S3 client settings. Credentials come from the usual AWS
// environment and shared config files.
type Config struct {
	Region   string
	Endpoint string
}

// Source is a parsed catalog location
type Source struct {
	Scheme string
	Bucket string
	Path   string
}

// ParseSource accepts s3://bucket/key, file:///path or a plain path
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, fmt.Errorf("%w: empty", ErrUnsupportedSource)
	}
	if !strings.Contains(raw, "://") {
		return Source{Scheme: "file", Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}
	switch u.Scheme {
	case "file":
		return Source{Scheme: "file", Path: u.Path}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Source{}, fmt.Errorf("%w: s3 source needs bucket and key", ErrUnsupportedSource)
		}
		return Source{Scheme: "s3", Bucket: u.Host, Path: key}, nil
	default:
		return Source{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedSource, u.Scheme)
	}
}

// Loader reads catalog documents
type Loader struct {
	config Config
	logger *zap.Logger
	s3     ObjectGetter
}

// Option configures a Loader
type Option func(*Loader)

// WithObjectGetter replaces the S3 client
func WithObjectGetter(g ObjectGetter) Option {
	return func(l *Loader) { l.s3 = g }
}

// NewLoader creates a loader. The S3 client is built on first use.
func NewLoader(config Config, logger *zap.Logger, opts ...Option) *Loader {
	l := &Loader{config: config, logger: logger.Named("catalog-loader")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and validates every item in the document at source
func (l *Loader) Load(ctx context.Context, source string) ([]food.FoodItem, error) {
	src, err := ParseSource(source)
	if err != nil {
		return nil, err
	}

	r, err := l.open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	items, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}
	l.logger.Info("Catalog document loaded", zap.String("source", source), zap.Int("items", len(items)))
	return items, nil
}

// Import loads source into an empty catalog. A catalog that already has
// items is left alone and reported as zero imported.
func (l *Loader) Import(ctx context.Context, source string, catalog interface {
	outbound.CatalogRepository
	outbound.CatalogWriter
}) (int, error) {
	count, err := catalog.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		l.logger.Info("Catalog already populated, skipping import", zap.Int64("items", count))
		return 0, nil
	}

	items, err := l.Load(ctx, source)
	if err != nil {
		return 0, err
	}
	if err := catalog.BulkCreate(ctx, items); err != nil {
		return 0, fmt.Errorf("store catalog: %w", err)
	}
	return len(items), nil
}

func (l *Loader) open(ctx context.Context, src Source) (io.ReadCloser, error) {
	if src.Scheme == "file" {
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, fmt.Errorf("open catalog file: %w", err)
		}
		return f, nil
	}

	client, err := l.client()
	if err != nil {
		return nil, err
	}
	out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(src.Bucket),
		Key:    aws.String(src.Path),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", src.Bucket, src.Path, err)
	}
	return out.Body, nil
}

func (l *Loader) client() (ObjectGetter, error) {
	if l.s3 != nil {
		return l.s3, nil
	}

	awsCfg := aws.Config{}
	if l.config.Region != "" {
		awsCfg.Region = aws.String(l.config.Region)
	}
	if l.config.Endpoint != "" {
		awsCfg.Endpoint = aws.String(l.config.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            awsCfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	l.s3 = s3.New(sess)
	return l.s3, nil
}

// Decode reads a JSON array of catalog items. Items without an id get one
// derived from restaurant and name, so re-importing the same document yields
// the same ids.
func Decode(r io.Reader) ([]food.FoodItem, error) {
	var items []food.FoodItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[uuid.UUID]int, len(items))
	for i := range items {
		item := &items[i]
		item.Restaurant = strings.TrimSpace(item.Restaurant)
		item.Item = strings.TrimSpace(item.Item)
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if item.ID == uuid.Nil {
			item.ID = StableID(item.Restaurant, item.Item)
		}
		if j, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("item %d: duplicate of item %d (%s)", i, j, item.ID)
		}
		seen[item.ID] = i
	}
	return items, nil
}

// StableID derives an item id from restaurant and name
func StableID(restaurant, item string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("platewise:"+restaurant+"/"+item))
}
