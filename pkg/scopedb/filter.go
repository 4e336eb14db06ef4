package scopedb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// validOps is the approved set of comparison operators. Operator text is
// interpolated into SQL, so anything outside this set must be rejected.
var validOps = map[string]bool{
	">":  true,
	"<":  true,
	"=":  true,
	"!=": true,
	">=": true,
	"<=": true,
}

// Filter matches scans whose metadata value for Param satisfies Op.
// Float-valued filters test scan_fdata, string-valued filters scan_sdata.
type Filter struct {
	Param string
	Op    string

	str     string
	num     float64
	numeric bool
}

// FloatFilter builds a filter against a numeric scan metadata value.
func FloatFilter(param, op string, value float64) Filter {
	return Filter{Param: param, Op: op, num: value, numeric: true}
}

// StringFilter builds a filter against a string scan metadata value.
func StringFilter(param, op, value string) Filter {
	return Filter{Param: param, Op: op, str: value}
}

// ParseFilter reads a filter expression of the form '<param><op><value>',
// e.g. 'R123GMES>=5' or 'mode=stable'. Values that parse as numbers become
// float filters; everything else becomes a string filter.
func ParseFilter(expr string) (Filter, error) {
	// Two-character operators first so '>=' is not read as '>' with '=value'.
	for _, op := range []string{">=", "<=", "!=", ">", "<", "="} {
		idx := strings.Index(expr, op)
		if idx <= 0 {
			continue
		}
		param := expr[:idx]
		value := expr[idx+len(op):]
		if num, err := strconv.ParseFloat(value, 64); err == nil {
			return FloatFilter(param, op, num), nil
		}
		return StringFilter(param, op, value), nil
	}
	return Filter{}, fmt.Errorf("invalid filter expression %q (want <param><op><value>)", expr)
}

// Validate checks the filter against the approved comparison operators.
func (f Filter) Validate() error {
	if f.Param == "" {
		return errors.New("filter parameter name is empty")
	}
	if !validOps[f.Op] {
		return fmt.Errorf("unsupported filter operator %q", f.Op)
	}
	return nil
}

// table names the metadata table this filter tests.
func (f Filter) table() string {
	if f.numeric {
		return "scan_fdata"
	}
	return "scan_sdata"
}

// value returns the comparison value as a bind argument.
func (f Filter) value() interface{} {
	if f.numeric {
		return f.num
	}
	return f.str
}

// String renders the filter the way ParseFilter reads it.
func (f Filter) String() string {
	if f.numeric {
		return fmt.Sprintf("%s%s%v", f.Param, f.Op, f.num)
	}
	return fmt.Sprintf("%s%s%s", f.Param, f.Op, f.str)
}

// buildScanQuery assembles the filtered scan lookup. Each filter joins
// against a metadata subselect so multiple filters AND together, and a scan
// must satisfy all of them. Operators are whitelist-checked and every value
// binds as a placeholder.
func buildScanQuery(begin, end time.Time, filters []Filter) (string, []interface{}, error) {
	var sb strings.Builder
	sb.WriteString("SELECT scan.sid, scan.scan_start_utc, scan.scan_end_utc FROM scan")

	var args []interface{}
	for i, f := range filters {
		if err := f.Validate(); err != nil {
			return "", nil, err
		}
		table := f.table()
		fmt.Fprintf(&sb, " JOIN (SELECT %s.sid FROM %s WHERE name = ? AND value %s ?) AS f%d ON scan.sid = f%d.sid",
			table, table, f.Op, i, i)
		args = append(args, f.Param, f.value())
	}

	var where []string
	if !begin.IsZero() {
		where = append(where, "scan.scan_start_utc >= ?")
		args = append(args, formatDBTime(begin))
	}
	if !end.IsZero() {
		where = append(where, "scan.scan_start_utc <= ?")
		args = append(args, formatDBTime(end))
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY scan.sid")

	return sb.String(), args, nil
}

// placeholders renders n comma-separated bind markers for an IN clause.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func stringArgs(names []string) []interface{} {
	args := make([]interface{}, len(names))
	for i, name := range names {
		args[i] = name
	}
	return args
}
