package models

import (
	"encoding/json"
	"fmt"
)

// Work is one cached bibliographic record, keyed by its OpenAlex identifier.
// Pointer fields are nullable; a nil pointer is persisted as NULL.
type Work struct {
	OpenAlexID      string  `json:"openalex_id" yaml:"openalex_id" gorm:"column:openalex_id;primaryKey"`
	Title           *string `json:"title" yaml:"title" gorm:"column:title"`
	PublicationDate *string `json:"publication_date" yaml:"publication_date" gorm:"column:publication_date"`
	DOI             *string `json:"doi" yaml:"doi" gorm:"column:doi"`
	Type            *string `json:"type" yaml:"type" gorm:"column:type"`
	Language        *string `json:"language" yaml:"language" gorm:"column:language"`
	// IsOA is tri-state: true, false or unknown (nil).
	IsOA     *bool   `json:"is_oa" yaml:"is_oa" gorm:"column:is_oa"`
	OAStatus *string `json:"oa_status" yaml:"oa_status" gorm:"column:oa_status"`

	Authors                 []string            `json:"authors" yaml:"authors" gorm:"column:authors;serializer:textlist"`
	Institutions            []string            `json:"institutions" yaml:"institutions" gorm:"column:institutions;serializer:textlist"`
	InstitutionAffiliations map[string][]string `json:"institution_affiliations" yaml:"institution_affiliations" gorm:"column:institution_affiliations_json;serializer:json"`

	Abstract *string `json:"abstract" yaml:"abstract" gorm:"column:abstract"`
	// RawJSON holds the serialized source payload exactly as it was stored.
	RawJSON   *string   `json:"raw_json" yaml:"raw_json" gorm:"column:raw_json"`
	UpdatedAt Timestamp `json:"updated_at" yaml:"updated_at" gorm:"column:updated_at;autoUpdateTime:false"`
}

// TableName specifies the table name for Work
func (Work) TableName() string {
	return "works"
}

// HasRaw reports whether a raw source payload was cached with the record.
func (w *Work) HasRaw() bool {
	return w.RawJSON != nil
}

// DecodeRaw unmarshals the cached raw payload into v.
func (w *Work) DecodeRaw(v interface{}) error {
	if w.RawJSON == nil {
		return fmt.Errorf("work %s has no raw payload", w.OpenAlexID)
	}
	return json.Unmarshal([]byte(*w.RawJSON), v)
}
