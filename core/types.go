package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date is a calendar date (no time of day), serialized as "YYYY-MM-DD".
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		// full timestamps are accepted as their calendar date
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
		}
		return NewDate(t), nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) AddDays(n int) Date { return Date{d.Time.AddDate(0, 0, n)} }

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }

// ISOWeekday returns the ISO day of the week: Monday=1 ... Sunday=7.
func (d Date) ISOWeekday() int {
	if wd := int(d.Weekday()); wd != 0 {
		return wd
	}
	return 7
}

// DaysUntil returns the number of days from d to o (negative if o is before d).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalParam binds query & path parameters.
func (d *Date) UnmarshalParam(param string) error { return d.UnmarshalText([]byte(param)) }

func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = NewDate(v)
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return fmt.Errorf("core.Date: unsupported type %T", v)
	}
	return nil
}

// sqliteTimestampLayouts are the text forms the sqlite driver may hand back for DATE columns.
var sqliteTimestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (d *Date) scanText(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range sqliteTimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d = NewDate(t)
			return nil
		}
	}
	return d.UnmarshalText([]byte(s))
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// StringList is stored as a comma-separated string.
type StringList []string

func (sl *StringList) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case nil:
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("core.StringList: unsupported type %T", v)
	}
	list := StringList{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	*sl = list
	return nil
}

func (sl StringList) Value() (driver.Value, error) {
	return strings.Join(sl, ","), nil
}

// IntList is stored as a comma-separated string.
type IntList []int

func (il *IntList) Scan(value interface{}) error {
	var sl StringList
	if err := sl.Scan(value); err != nil {
		return err
	}
	list := make(IntList, 0, len(sl))
	for _, item := range sl {
		n, err := strconv.Atoi(item)
		if err != nil {
			return fmt.Errorf("core.IntList: %w", err)
		}
		list = append(list, n)
	}
	*il = list
	return nil
}

func (il IntList) Value() (driver.Value, error) {
	items := make([]string, 0, len(il))
	for _, n := range il {
		items = append(items, strconv.Itoa(n))
	}
	return strings.Join(items, ","), nil
}

func (il IntList) Contains(n int) bool {
	for _, item := range il {
		if item == n {
			return true
		}
	}
	return false
}

// JSONMap is a free-form object stored as JSON text.
type JSONMap map[string]interface{}

func (m *JSONMap) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("core.JSONMap: unsupported type %T", v)
	}
	res := JSONMap{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &res); err != nil {
			return err
		}
	}
	*m = res
	return nil
}

func (m JSONMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
