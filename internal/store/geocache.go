package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/rahul/aiops/internal/tools"
)

// GeoCache keeps geocoder answers in SQLite so repeated cities skip the
// rate-limited lookup. It satisfies tools.GeoCache.
type GeoCache struct {
	DB  *sql.DB
	TTL time.Duration
	now func() time.Time
}

var _ tools.GeoCache = (*GeoCache)(nil)

// NewGeoCache opens (or creates) the cache at dbPath. Entries older than
// ttl are ignored; a zero ttl keeps them forever.
func NewGeoCache(dbPath string, ttl time.Duration) (*GeoCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	query := `CREATE TABLE IF NOT EXISTS geocodes (
		city TEXT PRIMARY KEY,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create geocodes table: %w", err)
	}

	return &GeoCache{DB: db, TTL: ttl, now: time.Now}, nil
}

func (c *GeoCache) Lookup(ctx context.Context, city string) (tools.Coordinates, bool, error) {
	query := `SELECT lat, lon, updated_at FROM geocodes WHERE city = ?`

	var coords tools.Coordinates
	var updated int64
	err := c.DB.QueryRowContext(ctx, query, cacheKey(city)).Scan(&coords.Lat, &coords.Lon, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return tools.Coordinates{}, false, nil
	}
	if err != nil {
		return tools.Coordinates{}, false, err
	}

	if c.TTL > 0 && c.now().Sub(time.Unix(updated, 0)) > c.TTL {
		return tools.Coordinates{}, false, nil
	}
	return coords, true, nil
}

func (c *GeoCache) Store(ctx context.Context, city string, coords tools.Coordinates) error {
	query := `INSERT INTO geocodes (city, lat, lon, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(city) DO UPDATE SET lat = excluded.lat, lon = excluded.lon, updated_at = excluded.updated_at`
	_, err := c.DB.ExecContext(ctx, query, cacheKey(city), coords.Lat, coords.Lon, c.now().Unix())
	return err
}

func (c *GeoCache) Close() error {
	return c.DB.Close()
}

func cacheKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
