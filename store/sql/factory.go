package sqlstore

import (
	"fmt"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	profileStore    *ProfileStore
	resolutionStore *ResolutionStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.Build(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.Build(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// Build accepts a *bun.DB or anything exposing DB() *bun.DB.
func (f *RepositoryFactory) Build(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.profileStore != nil && f.resolutionStore != nil {
		return nil
	}
	profileStore, err := NewProfileStore(f.db)
	if err != nil {
		return err
	}
	resolutionStore, err := NewResolutionStore(f.db)
	if err != nil {
		return err
	}
	f.profileStore = profileStore
	f.resolutionStore = resolutionStore
	return nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) ProfileStore() *ProfileStore {
	if f == nil {
		return nil
	}
	return f.profileStore
}

// CachedProfileStore wraps the profile store with a cache holding entries for
// ttl. A non-positive ttl keeps the cache default.
func (f *RepositoryFactory) CachedProfileStore(ttl time.Duration) (*CachedProfileStore, error) {
	if f == nil || f.profileStore == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is not built")
	}
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	cacheService, err := repositorycache.NewCacheService(config)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: build profile cache: %w", err)
	}
	return NewCachedProfileStore(f.profileStore, cacheService)
}

func (f *RepositoryFactory) ResolutionStore() *ResolutionStore {
	if f == nil {
		return nil
	}
	return f.resolutionStore
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
