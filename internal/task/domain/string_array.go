package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringArray stores a list of strings in a jsonb column
type StringArray []string

// Value implements driver.Valuer
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	if len(bytes) == 0 {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// MarshalJSON keeps empty arrays as [] instead of null
func (a StringArray) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(a))
}
