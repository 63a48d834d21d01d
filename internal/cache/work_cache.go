package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flanksource/commons/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flanksource/sdg-cache/models"
)

// WorkCache stores bibliographic metadata keyed by OpenAlex identifier.
// There is no in-memory layer; every lookup reads the database.
type WorkCache struct {
	db *DB
}

// Get returns the cached work for openAlexID. A miss is reported as
// (nil, false, nil).
func (c *WorkCache) Get(ctx context.Context, openAlexID string) (*models.Work, bool, error) {
	id := strings.TrimSpace(openAlexID)
	if id == "" {
		return nil, false, nil
	}

	var work models.Work
	err := c.db.Read(ctx).Where("openalex_id = ?", id).Take(&work).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get work %s: %w", id, err)
	}
	return &work, true, nil
}

// Put inserts work, or replaces every column of the existing row with the
// same identifier. Fields left nil become NULL; nothing is merged with the
// previous row. raw is the full source payload and is stored as JSON, or
// NULL when nil or empty, replacing whatever work.RawJSON held. UpdatedAt
// is set to the current time.
func (c *WorkCache) Put(ctx context.Context, work models.Work, raw interface{}) error {
	id, err := normalizeKey(work.OpenAlexID)
	if err != nil {
		return err
	}
	work.OpenAlexID = id

	work.RawJSON, err = encodeRawPayload(raw)
	if err != nil {
		return serializeError("raw payload", id, err)
	}
	work.UpdatedAt = models.Now()

	err = c.db.Write(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "openalex_id"}},
			UpdateAll: true,
		}).Create(&work).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert work %s: %w", id, err)
	}

	logger.Debugf("Cached work %s", id)
	return nil
}
