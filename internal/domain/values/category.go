package values

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Category identifies the kind of device a sell request is for.
type Category string

const (
	CategoryComputer   Category = "computer"
	CategorySmartphone Category = "smartphone"
)

// NewCategory parses and validates a category string.
func NewCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid category: %s", s)
	}
	return c, nil
}

// IsValid reports whether the category is a known value.
func (c Category) IsValid() bool {
	switch c {
	case CategoryComputer, CategorySmartphone:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// Database scanning (implements sql.Scanner)
func (c *Category) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		parsed, err := NewCategory(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case []byte:
		return c.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Category", value)
	}
}

// Database value (implements driver.Valuer)
func (c Category) Value() (driver.Value, error) {
	return string(c), nil
}
