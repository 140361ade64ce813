package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

type reindexMessage struct {
	StorageKey  string    `json:"storage_key"`
	RequestedAt time.Time `json:"requested_at"`
}

func encodeReindex(msg reindexMessage) ([]byte, error) {
	if strings.TrimSpace(msg.StorageKey) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode reindex", errors.New("storage key is required"))
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal reindex message: %w", err)
	}
	return raw, nil
}

// decodeReindex also accepts a bare storage key, the format older publishers used.
func decodeReindex(data []byte) (reindexMessage, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return reindexMessage{}, errors.New("empty reindex message")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return reindexMessage{StorageKey: trimmed}, nil
	}
	var msg reindexMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return reindexMessage{}, fmt.Errorf("unmarshal reindex message: %w", err)
	}
	if msg.StorageKey == "" {
		return reindexMessage{}, errors.New("reindex message without storage_key")
	}
	return msg, nil
}

func encodeStats(stats domain.IndexStats) ([]byte, error) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return nil, fmt.Errorf("marshal index stats: %w", err)
	}
	return raw, nil
}

func decodeStats(data []byte) (domain.IndexStats, error) {
	var stats domain.IndexStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return domain.IndexStats{}, fmt.Errorf("unmarshal index stats: %w", err)
	}
	return stats, nil
}
