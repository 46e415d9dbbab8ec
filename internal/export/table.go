package export

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"

	rosbag2 "github.com/lherman-cs/go-rosbag2"
)

// Table is the tabular artifact of one channel. Rows only hold the keys their
// record had; writers render the other columns as empty cells.
type Table struct {
	Channel string
	Columns []string
	Rows    []map[string]string
}

// BuildTable unions the keys of records into a sorted header and renders each
// record as a row, in the given order.
func BuildTable(channel string, records []rosbag2.FlatRecord) Table {
	seen := make(map[string]struct{})
	rows := make([]map[string]string, len(records))
	for i, record := range records {
		row := make(map[string]string, len(record))
		for k, v := range record {
			seen[k] = struct{}{}
			row[k] = FormatLeaf(v)
		}
		rows[i] = row
	}

	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	return Table{
		Channel: channel,
		Columns: columns,
		Rows:    rows,
	}
}

// Record returns row i laid out along the table's columns.
func (t Table) Record(i int) []string {
	out := make([]string, len(t.Columns))
	for j, col := range t.Columns {
		out[j] = t.Rows[i][col]
	}
	return out
}

// FormatLeaf renders a scalar as a CSV cell. Binary leaves are base64 encoded.
func FormatLeaf(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
