package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/strategy"
)

const (
	RoutingConfigBucket = "routing_config"
	MetaBucket          = "meta"

	DefaultDBPath = "./data/quote-engine.db"

	metaChains  = "chains"
	metaSavedAt = "savedAt"
)

// StoredRoute mirrors strategy.Route on disk.
type StoredRoute struct {
	Key       string         `json:"key"`
	Priority  int            `json:"priority"`
	IsShadow  bool           `json:"isShadow,omitempty"`
	Overrides map[string]any `json:"overrides,omitempty"`
}

// Storage keeps the last routing config fetched from the CMS, one entry per
// chain.
type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[routingConfigStorage] opened database")

	return &Storage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func setOp(bucket, key string, data []byte) *boltdb.WriteOperation {
	value := data
	return &boltdb.WriteOperation{
		Bucket: []byte(bucket),
		Key:    []byte(key),
		Value:  &value,
		Op:     boltdb.OpSet,
	}
}

// SaveRoutingConfig writes every chain plus the chain index in one batch.
func (s *Storage) SaveRoutingConfig(cfg strategy.RoutingConfig) error {
	batch := s.db.NewBatch()
	chains := make([]string, 0, len(cfg))
	for chainID, tokens := range cfg {
		stored := make(map[string][]StoredRoute, len(tokens))
		for addr, routes := range tokens {
			stored[addr] = routesToStored(routes)
		}
		data, err := sonic.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to marshal routing config for chain %d: %w", chainID, err)
		}
		key := chainID.String()
		if err := batch.Add(setOp(RoutingConfigBucket, key, data)); err != nil {
			return fmt.Errorf("failed to add chain %s to batch: %w", key, err)
		}
		chains = append(chains, key)
	}

	if err := batch.Add(setOp(MetaBucket, metaChains, []byte(strings.Join(chains, ",")))); err != nil {
		return fmt.Errorf("failed to add chain index to batch: %w", err)
	}
	savedAt := strconv.FormatInt(time.Now().Unix(), 10)
	if err := batch.Add(setOp(MetaBucket, metaSavedAt, []byte(savedAt))); err != nil {
		return fmt.Errorf("failed to add timestamp to batch: %w", err)
	}
	if err := batch.Execute(); err != nil {
		return fmt.Errorf("failed to execute routing config batch: %w", err)
	}

	log.Debug().Int("chains", len(chains)).Msg("[routingConfigStorage] saved routing config")
	return nil
}

// LoadRoutingConfig returns nil when no snapshot was ever saved. Chains left
// over from older snapshots are ignored.
func (s *Storage) LoadRoutingConfig() (strategy.RoutingConfig, error) {
	meta, err := s.db.List(MetaBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list meta: %w", err)
	}
	index, ok := meta[metaChains]
	if !ok {
		return nil, nil
	}
	current := make(map[string]struct{})
	for _, key := range strings.Split(string(index), ",") {
		if key != "" {
			current[key] = struct{}{}
		}
	}

	data, err := s.db.List(RoutingConfigBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list routing config: %w", err)
	}

	cfg := make(strategy.RoutingConfig, len(current))
	for key, value := range data {
		if _, ok := current[key]; !ok {
			continue
		}
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			log.Warn().Str("key", key).Msg("[routingConfigStorage] skipping malformed chain key")
			continue
		}
		var stored map[string][]StoredRoute
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Warn().Err(err).Str("chain", key).Msg("[routingConfigStorage] failed to unmarshal routing config")
			continue
		}
		tokens := make(map[string][]strategy.Route, len(stored))
		for addr, routes := range stored {
			tokens[addr] = storedToRoutes(routes)
		}
		cfg[domain.ChainID(id)] = tokens
	}

	log.Info().Int("chains", len(cfg)).Msg("[routingConfigStorage] loaded routing config snapshot")
	return cfg, nil
}

// SavedAt is the time of the last snapshot; zero if none.
func (s *Storage) SavedAt() (time.Time, error) {
	meta, err := s.db.List(MetaBucket)
	if err != nil {
		return time.Time{}, err
	}
	raw, ok := meta[metaSavedAt]
	if !ok {
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}

func routesToStored(routes []strategy.Route) []StoredRoute {
	out := make([]StoredRoute, len(routes))
	for i, r := range routes {
		out[i] = StoredRoute{Key: string(r.Key), Priority: r.Priority, IsShadow: r.IsShadow, Overrides: r.Override}
	}
	return out
}

func storedToRoutes(stored []StoredRoute) []strategy.Route {
	out := make([]strategy.Route, len(stored))
	for i, r := range stored {
		out[i] = strategy.Route{Key: strategy.Key(r.Key), Priority: r.Priority, IsShadow: r.IsShadow, Override: r.Overrides}
	}
	return out
}
