// Copyright © 2018 One Concern

package sqldb

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// SQLite renders timestamps in this layout
const timestampLayout = "2006-01-02 15:04:05"

// Collect all rows, closing them. Values are rendered as text: NULL is nil,
// numbers are printed in decimal and blobs in lower case hexadecimal.
func Collect(rows *sql.Rows) ([][]*string, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := make([][]*string, 0, 10)
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]*string, len(cols))
		for i, v := range values {
			row[i] = Text(v)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Text renders a value scanned from the driver
func Text(v interface{}) *string {
	var s string
	switch val := v.(type) {
	case nil:
		return nil
	case int64:
		s = strconv.FormatInt(val, 10)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		s = val
	case []byte:
		s = hex.EncodeToString(val)
	case bool:
		if val {
			s = "1"
		} else {
			s = "0"
		}
	case time.Time:
		s = val.UTC().Format(timestampLayout)
	default:
		s = fmt.Sprintf("%v", val)
	}
	return &s
}
