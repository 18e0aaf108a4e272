package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/inhies/go-bytesize"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
)

// Key is a slash separated asset path relative to the store root,
// e.g. "battery/bat05.bmp".
type Key string

func (k Key) Dir() string {
	return path.Dir(string(k))
}

var ErrNotFound = errors.New("asset not found")

type Option func(s *Store)

// WithBaseURL fetches assets missing from the filesystem over HTTP.
func WithBaseURL(url string) Option {
	return func(s *Store) {
		if url != "" {
			s.cli = resty.New().SetBaseURL(url)
		}
	}
}

// WithWriteBack stores assets fetched over HTTP into the filesystem.
func WithWriteBack() Option {
	return func(s *Store) {
		s.writeBack = true
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

func NewStore(fs afero.Fs, opts ...Option) *Store {
	s := &Store{
		fs:    fs,
		log:   zap.NewNop(),
		cache: make(map[Key]*entry),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.log = s.log.With(zap.String("via", "assets"))
	return s
}

// Store loads decoded images by key. Each key is decoded once; concurrent
// loads of the same key share the result.
type Store struct {
	fs        afero.Fs
	cli       *resty.Client
	writeBack bool
	log       *zap.Logger

	mu    sync.Mutex
	cache map[Key]*entry
}

type entry struct {
	done chan struct{}
	img  image.Image
	err  error
}

func (s *Store) Load(ctx context.Context, key Key) (image.Image, error) {
	s.mu.Lock()
	e, ok := s.cache[key]
	if !ok {
		e = &entry{done: make(chan struct{})}
		s.cache[key] = e
		go s.fill(key, e)
	}
	s.mu.Unlock()

	select {
	case <-e.done:
		return e.img, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cached reports whether key was loaded successfully.
func (s *Store) Cached(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache[key]
	if !ok {
		return false
	}
	select {
	case <-e.done:
		return e.err == nil
	default:
		return false
	}
}

func (s *Store) fill(key Key, e *entry) {
	defer close(e.done)

	bs, err := s.read(key)
	if err == nil {
		e.img, _, err = image.Decode(bytes.NewReader(bs))
		if err != nil {
			err = fmt.Errorf("decode %s failed: %w", key, err)
		}
	}

	if err != nil {
		e.err = err
		// failures are not cached
		s.mu.Lock()
		delete(s.cache, key)
		s.mu.Unlock()
		return
	}

	s.log.With(
		zap.String("key", string(key)),
		zap.String("size", bytesize.New(float64(len(bs))).String()),
	).Debug("loaded")
}

func (s *Store) read(key Key) ([]byte, error) {
	bs, err := afero.ReadFile(s.fs, string(key))
	if err == nil {
		return bs, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	if s.cli == nil {
		return nil, errors.Wrap(ErrNotFound, string(key))
	}
	return s.fetch(key)
}

func (s *Store) fetch(key Key) ([]byte, error) {
	resp, err := s.cli.R().Get(string(key))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, errors.Wrapf(ErrNotFound, "%s: http %d", key, resp.StatusCode())
	}

	bs := resp.Body()
	if s.writeBack {
		if err := s.save(key, bs); err != nil {
			s.log.With(zap.String("key", string(key)), zap.Error(err)).Info("write back failed")
		}
	}
	return bs, nil
}

func (s *Store) save(key Key, bs []byte) error {
	if exists, err := afero.DirExists(s.fs, key.Dir()); err != nil {
		return err
	} else if !exists {
		if err2 := s.fs.MkdirAll(key.Dir(), 0755); err2 != nil {
			return err2
		}
	}
	return afero.WriteFile(s.fs, string(key), bs, 0644)
}

// Preload warms the cache with keys, reporting progress when bar is true.
func (s *Store) Preload(ctx context.Context, keys []Key, bar bool) error {
	var pb *progressbar.ProgressBar
	if bar {
		pb = progressbar.Default(int64(len(keys)), "loading assets")
	}

	for _, k := range keys {
		if _, err := s.Load(ctx, k); err != nil {
			return fmt.Errorf("preload failed: %w", err)
		}
		if pb != nil {
			_ = pb.Add(1)
		}
	}
	return nil
}
