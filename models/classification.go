package models

import (
	"encoding/json"
	"fmt"
)

// Classification is the cached SDG result for one (work, model) pair.
type Classification struct {
	OpenAlexID   string    `json:"openalex_id" yaml:"openalex_id" gorm:"column:openalex_id;primaryKey"`
	Model        string    `json:"model" yaml:"model" gorm:"column:model;primaryKey"`
	Response     *string   `json:"sdg_response" yaml:"sdg_response" gorm:"column:sdg_response"`
	Formatted    *string   `json:"sdg_formatted" yaml:"sdg_formatted" gorm:"column:sdg_formatted"`
	Note         *string   `json:"sdg_note" yaml:"sdg_note" gorm:"column:sdg_note"`
	ClassifiedAt Timestamp `json:"classified_at" yaml:"classified_at" gorm:"column:classified_at"`
}

// TableName specifies the table name for Classification
func (Classification) TableName() string {
	return "sdg_results"
}

// DecodeResponse unmarshals the cached service response into v.
func (c *Classification) DecodeResponse(v interface{}) error {
	if c.Response == nil {
		return fmt.Errorf("classification %s/%s has no response payload", c.OpenAlexID, c.Model)
	}
	return json.Unmarshal([]byte(*c.Response), v)
}
