package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/quantlab/zoneanalyzer/internal/models"
)

// Store is the persistent tier behind the in-memory cache.
type Store interface {
	Get(ctx context.Context, key string) (*models.AnalysisResult, bool, error)
	Set(ctx context.Context, key string, result *models.AnalysisResult, ttl time.Duration) error
	Reset(ctx context.Context) error
	Close() error
}

func init() {
	// Detection rule parameters travel as interface values inside the
	// result, so gob needs their concrete types up front.
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
	gob.Register("")
	gob.Register(0)
	gob.Register(int64(0))
	gob.Register(0.0)
	gob.Register(false)
}

func encodeResult(result *models.AnalysisResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeResult(data []byte) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
