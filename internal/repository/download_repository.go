package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rehber-go/internal/model"

	"github.com/go-redis/redis/v8"
)

// ErrDownloadNotFound 表示下载凭据不存在或已过期。
var ErrDownloadNotFound = errors.New("download not found")

const downloadKeyPrefix = "download:"

// DownloadRepository 以带 TTL 的 Redis 键保存临时下载凭据。
type DownloadRepository interface {
	Save(ctx context.Context, fileName string, entry model.DownloadEntry, ttl time.Duration) error
	Get(ctx context.Context, fileName string) (model.DownloadEntry, error)
}

type downloadRepository struct {
	rdb *redis.Client
}

// NewDownloadRepository 创建一个新的 DownloadRepository 实例。
func NewDownloadRepository(rdb *redis.Client) DownloadRepository {
	return &downloadRepository{rdb: rdb}
}

func (r *downloadRepository) Save(ctx context.Context, fileName string, entry model.DownloadEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal download entry: %w", err)
	}
	return r.rdb.Set(ctx, downloadKeyPrefix+fileName, payload, ttl).Err()
}

func (r *downloadRepository) Get(ctx context.Context, fileName string) (model.DownloadEntry, error) {
	var entry model.DownloadEntry
	payload, err := r.rdb.Get(ctx, downloadKeyPrefix+fileName).Bytes()
	if errors.Is(err, redis.Nil) {
		return entry, ErrDownloadNotFound
	}
	if err != nil {
		return entry, err
	}
	if err := json.Unmarshal(payload, &entry); err != nil {
		return entry, fmt.Errorf("unmarshal download entry: %w", err)
	}
	return entry, nil
}
