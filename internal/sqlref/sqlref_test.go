package sqlref

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "single qualified table",
			sql:  "SELECT * FROM `my-project.sales.transactions` WHERE amount > 10",
			want: []string{"my-project.sales.transactions"},
		},
		{
			name: "from and joins",
			sql: `SELECT o.id FROM sales.orders o
				JOIN sales.customers c ON o.cid = c.id
				LEFT JOIN [sales.regions] r ON r.id = c.rid`,
			want: []string{"sales.orders", "sales.customers", "sales.regions"},
		},
		{
			name: "duplicates removed",
			sql:  "SELECT 1 FROM a.t UNION ALL SELECT 2 FROM a.t",
			want: []string{"a.t"},
		},
		{
			name: "subquery and unnest skipped",
			sql:  "SELECT x FROM (SELECT * FROM d.events), UNNEST(arr) AS x",
			want: []string{"d.events"},
		},
		{
			name: "extract function is not a table",
			sql:  "SELECT EXTRACT(DAY FROM created_at) FROM d.events",
			want: []string{"d.events"},
		},
		{
			name: "comments ignored",
			sql:  "-- FROM fake.table\nSELECT 1 /* JOIN other.fake */ FROM real.t",
			want: []string{"real.t"},
		},
		{
			name: "wildcard table",
			sql:  "SELECT * FROM `p.analytics.events_*`",
			want: []string{"p.analytics.events_*"},
		},
		{
			name: "lowercase keywords keep identifier case",
			sql:  "select * from Sales.Orders",
			want: []string{"Sales.Orders"},
		},
		{
			name: "nothing to find",
			sql:  "SELECT 1",
			want: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Extract(tc.sql); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Extract() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsTableRef(t *testing.T) {
	valid := []string{"t", "d.t", "my-proj.d.t", "example.com:proj.d.t", "d.events_*", "d._private"}
	invalid := []string{"", "select", "UNNEST", "a.b.c.d.e", "d.1table", "d.t-x", "d.", "@param"}

	for _, s := range valid {
		if !IsTableRef(s) {
			t.Errorf("IsTableRef(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsTableRef(s) {
			t.Errorf("IsTableRef(%q) = true, want false", s)
		}
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"['p.d.a', 'p.d.b']", []string{"p.d.a", "p.d.b"}},
		{`["d.a"]`, []string{"d.a"}},
		{"d.a, d.b", []string{"d.a", "d.b"}},
		{"[]", nil},
		{"", nil},
		{"['ok.t', 'not valid!']", []string{"ok.t"}},
	}
	for _, tc := range tests {
		if got := ParseList(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseList(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
