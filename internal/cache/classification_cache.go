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

// ClassificationCache stores SDG classification results keyed by
// (OpenAlex identifier, model). A result does not require a cached work.
type ClassificationCache struct {
	db *DB
}

// Get returns the cached classification for the pair. A miss is reported as
// (nil, false, nil).
func (c *ClassificationCache) Get(ctx context.Context, openAlexID, model string) (*models.Classification, bool, error) {
	id, m := strings.TrimSpace(openAlexID), strings.TrimSpace(model)
	if id == "" || m == "" {
		return nil, false, nil
	}

	var result models.Classification
	err := c.db.Read(ctx).Where("openalex_id = ? AND model = ?", id, m).Take(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get classification %s/%s: %w", id, m, err)
	}
	return &result, true, nil
}

// Put records the classification of a work under model, overwriting any
// previous result for the same pair. response is stored as JSON (nil stores
// NULL). formatted and note are stored verbatim; nil and "" are distinct.
func (c *ClassificationCache) Put(ctx context.Context, openAlexID, model string, response interface{}, formatted, note *string) error {
	id, m, err := normalizeCompositeKey(openAlexID, model)
	if err != nil {
		return err
	}

	encoded, err := encodePayload(response)
	if err != nil {
		return serializeError("classification response", id+"/"+m, err)
	}

	result := models.Classification{
		OpenAlexID:   id,
		Model:        m,
		Response:     encoded,
		Formatted:    formatted,
		Note:         note,
		ClassifiedAt: models.Now(),
	}

	err = c.db.Write(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "openalex_id"}, {Name: "model"}},
			UpdateAll: true,
		}).Create(&result).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert classification %s/%s: %w", id, m, err)
	}

	logger.Debugf("Cached classification %s/%s", id, m)
	return nil
}
