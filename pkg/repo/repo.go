package repo

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/odvcencio/mgit/pkg/object"
)

// DirName is the repository metadata directory under the working tree root.
const DirName = ".mgit"

// Repo represents an opened mgit repository.
type Repo struct {
	RootDir string        // working directory root
	GitDir  string        // .mgit/ directory
	Store   *object.Store // content-addressed object store
	Config  *Config       // .mgit/config, defaults when absent
	Logger  *zap.Logger
}

// Option configures Init and Open.
type Option func(*options)

type options struct {
	log       *zap.Logger
	cacheSize int
}

// WithLogger routes repository and store logging to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithCacheSize overrides the object cache size from the repository config.
// Negative values leave the configured size in place.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

func newOptions(opts []Option) options {
	o := options{log: zap.NewNop(), cacheSize: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// newRepo wires the store and config for an existing metadata directory.
func newRepo(root, gitDir string, o options) (*Repo, error) {
	cfg, err := readConfig(filepath.Join(gitDir, configFile))
	if err != nil {
		return nil, err
	}
	size := cfg.Core.CacheSize
	if o.cacheSize >= 0 {
		size = o.cacheSize
	}
	log := o.log.With(zap.String("repo", root))
	return &Repo{
		RootDir: root,
		GitDir:  gitDir,
		Store: object.NewStore(filepath.Join(gitDir, "objects"),
			object.WithLogger(log.Named("store")),
			object.WithCacheSize(size),
		),
		Config: cfg,
		Logger: log,
	}, nil
}

// IndexPath returns the filesystem path of the staging index.
func (r *Repo) IndexPath() string {
	return filepath.Join(r.GitDir, "index")
}

// workPath maps a repository-relative slash path to the working tree.
func (r *Repo) workPath(name string) string {
	return filepath.Join(r.RootDir, filepath.FromSlash(name))
}
