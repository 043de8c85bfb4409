package translate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// EncodeValue converts a raw string value into its remote encoding.
// Dates become unix milliseconds so NUMERIC range and sort work.
func EncodeValue(dt schema.DataType, raw string) (string, error) {
	v := strings.TrimSpace(raw)

	switch dt {
	case schema.String:
		return raw, nil

	case schema.Int32:
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return "", invalidValue(dt, raw, err)
		}
		return strconv.FormatInt(n, 10), nil

	case schema.Int64:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return "", invalidValue(dt, raw, err)
		}
		return strconv.FormatInt(n, 10), nil

	case schema.Double:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "", invalidValue(dt, raw, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", invalidValue(dt, raw, fmt.Errorf("not a finite number"))
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil

	case schema.DateTimeOffset:
		ms, err := parseDate(v)
		if err != nil {
			return "", invalidValue(dt, raw, err)
		}
		return strconv.FormatInt(ms, 10), nil
	}

	return "", fmt.Errorf("unknown data type %q: %w", dt, domain.ErrInvalidValue)
}

func parseDate(v string) (int64, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unrecognised date format")
}

func invalidValue(dt schema.DataType, raw string, err error) error {
	return fmt.Errorf("%q is not a valid %s: %w: %w", raw, dt, domain.ErrInvalidValue, err)
}
