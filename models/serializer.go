package models

import (
	"context"
	"reflect"

	"gorm.io/gorm/schema"
)

func init() {
	schema.RegisterSerializer("textlist", TextListSerializer{})
}

// TextListSerializer stores string lists as JSON arrays. Rows written before
// these columns held JSON contain free text; that text is read back as a
// single-element list instead of failing the whole lookup.
type TextListSerializer struct {
	schema.JSONSerializer
}

func (s TextListSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	err := s.JSONSerializer.Scan(ctx, field, dst, dbValue)
	if err == nil || field.FieldType != reflect.TypeOf([]string(nil)) {
		return err
	}

	var text string
	switch v := dbValue.(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return err
	}
	field.ReflectValueOf(ctx, dst).Set(reflect.ValueOf([]string{text}))
	return nil
}
