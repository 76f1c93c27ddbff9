// The sampler is the external periodic process that produces the disk
// usage samples the dashboard aggregates. It measures the storage
// volume at a fixed interval and appends one DiskSample per tick; the
// audit core only ever reads these rows.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sys/unix"

	"github.com/matatunos/shareaudit/pkg/shareaudit"
	postgresrepo "github.com/matatunos/shareaudit/pkg/shareaudit/repo/postgres"
)

type Config struct {
	StoragePath string        `env:"STORAGE_PATH" env-default:"/var/lib/shareaudit/storage"`
	Interval    time.Duration `env:"SAMPLE_INTERVAL" env-default:"1h"`
	DB          DbConfig
}

type DbConfig struct {
	Port     uint16 `env:"AUDIT_PG_PORT" env-default:"5432"`
	Host     string `env:"AUDIT_PG_HOST" env-default:"localhost"`
	Name     string `env:"AUDIT_PG_NAME" env-default:"shareaudit_db"`
	User     string `env:"AUDIT_PG_USER" env-default:"shareaudit"`
	Password string `env:"AUDIT_PG_PASSWORD" env-default:"pwd"`
}

func (c DbConfig) toDatabaseUrl() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

// measure reads the physically reported usage of the filesystem holding
// the storage path.
func measure(path string) (*shareaudit.DiskSample, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return nil, fmt.Errorf("statfs %s: %w", path, err)
	}

	total := int64(stat.Blocks) * stat.Bsize
	free := int64(stat.Bavail) * stat.Bsize

	return &shareaudit.DiskSample{
		ID:         uuid.New(),
		RecordedAt: time.Now().UTC(),
		UsedBytes:  total - free,
		TotalBytes: total,
	}, nil
}

func sampleOnce(ctx context.Context, repo shareaudit.Repository, path string) {
	sample, err := measure(path)
	if err != nil {
		slog.Error("Failed to measure disk usage", "err", err)
		return
	}
	if err := repo.RecordDiskSample(ctx, sample); err != nil {
		slog.Error("Failed to record disk sample", "err", err)
		return
	}
	slog.Info("Recorded disk sample",
		"used_bytes", sample.UsedBytes, "total_bytes", sample.TotalBytes)
}

func main() {
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, config.DB.toDatabaseUrl())
	if err != nil {
		slog.Error("Failed to create connection pool", "err", err)
		os.Exit(1)
	}
	if err := pool.Ping(ctx); err != nil {
		slog.Error("Failed to ping database", "err", err)
		os.Exit(1)
	}
	repo := postgresrepo.NewWithPool(pool)

	slog.Info("Sampler starting", "path", config.StoragePath, "interval", config.Interval)
	sampleOnce(ctx, repo, config.StoragePath)

	ticker := time.NewTicker(config.Interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			sampleOnce(ctx, repo, config.StoragePath)
		case <-quit:
			slog.Info("Sampler exiting")
			return
		}
	}
}
