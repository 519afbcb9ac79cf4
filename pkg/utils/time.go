package utils

import (
	"strconv"
	"time"
)

// UnixMilli renders t as a decimal millisecond timestamp.
func UnixMilli(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
