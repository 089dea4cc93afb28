package domain

import (
	"strings"
	"time"
)

const bytesPerGB = 1 << 30

// UnknownTable is the table identifier stamped on recommendations whose target cannot be resolved.
const UnknownTable = "unknown_table"

// TableRef identifies a table as project.dataset.table.
type TableRef struct {
	Project string `json:"project"`
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
}

// String joins the non-empty parts with dots.
func (r TableRef) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Project, r.Dataset, r.Table} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// ParseTableRef splits a dotted identifier. One part is a bare table, two parts are dataset.table.
func ParseTableRef(id string) TableRef {
	parts := strings.Split(id, ".")
	switch len(parts) {
	case 1:
		return TableRef{Table: parts[0]}
	case 2:
		return TableRef{Dataset: parts[0], Table: parts[1]}
	default:
		return TableRef{
			Project: strings.Join(parts[:len(parts)-2], "."),
			Dataset: parts[len(parts)-2],
			Table:   parts[len(parts)-1],
		}
	}
}

// Column is a single schema field.
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Mode        string `json:"mode,omitempty"` // NULLABLE, REQUIRED, REPEATED
	Description string `json:"description,omitempty"`
}

// IsNested reports whether the column is a RECORD/STRUCT or REPEATED field.
func (c Column) IsNested() bool {
	t := strings.ToUpper(c.Type)
	return t == "RECORD" || t == "STRUCT" || strings.EqualFold(c.Mode, "REPEATED")
}

// Partitioning describes how a table is partitioned.
// An empty Column with a Type set means ingestion-time partitioning.
type Partitioning struct {
	Column     string        `json:"column,omitempty"`
	Type       string        `json:"type,omitempty"` // DAY, HOUR, MONTH, YEAR, RANGE
	Expiration time.Duration `json:"expiration,omitempty"`
}

// TableMetadata is an immutable snapshot of one table as produced by a collector.
type TableMetadata struct {
	Ref          TableRef          `json:"ref"`
	SizeBytes    int64             `json:"size_bytes"`
	NumRows      int64             `json:"num_rows"`
	Partitioning *Partitioning     `json:"partitioning,omitempty"`
	Clustering   []string          `json:"clustering,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	LastModified time.Time         `json:"last_modified"`
	Expiration   time.Time         `json:"expiration,omitzero"`
	Labels       map[string]string `json:"labels,omitempty"`
	Description  string            `json:"description,omitempty"`
	Columns      []Column          `json:"columns"`
	Streaming    bool              `json:"streaming,omitempty"`
}

// ID returns the dotted table identifier.
func (t *TableMetadata) ID() string {
	return t.Ref.String()
}

// SizeGB returns the table size in GiB.
func (t *TableMetadata) SizeGB() float64 {
	return float64(t.SizeBytes) / bytesPerGB
}

// IsPartitioned reports whether any partitioning is configured.
func (t *TableMetadata) IsPartitioned() bool {
	return t.Partitioning != nil && (t.Partitioning.Column != "" || t.Partitioning.Type != "")
}

// PartitionColumn returns the partition column name, or "" for none or ingestion-time.
func (t *TableMetadata) PartitionColumn() string {
	if t.Partitioning == nil {
		return ""
	}
	return t.Partitioning.Column
}

// IsClustered reports whether clustering columns are set.
func (t *TableMetadata) IsClustered() bool {
	return len(t.Clustering) > 0
}

// HasExpiration reports whether a table or partition expiration policy exists.
func (t *TableMetadata) HasExpiration() bool {
	if !t.Expiration.IsZero() {
		return true
	}
	return t.Partitioning != nil && t.Partitioning.Expiration > 0
}

// Age returns how long ago the table was last modified, relative to now.
func (t *TableMetadata) Age(now time.Time) time.Duration {
	if t.LastModified.IsZero() {
		return 0
	}
	return now.Sub(t.LastModified)
}

// Column looks a column up by name, case-insensitively.
func (t *TableMetadata) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// QueryRecord is one aggregated query from the workload history.
type QueryRecord struct {
	ID             string    `json:"id,omitempty"`
	Text           string    `json:"text"`
	Tables         []string  `json:"tables,omitempty"`
	BytesScanned   int64     `json:"bytes_scanned"`
	ExecutionCount int       `json:"execution_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// Executions returns the execution count, treating a missing count as one run.
func (q *QueryRecord) Executions() int {
	if q.ExecutionCount <= 0 {
		return 1
	}
	return q.ExecutionCount
}

// References reports whether the query names the table, by full id or by bare table name.
func (q *QueryRecord) References(ref TableRef) bool {
	for _, id := range q.Tables {
		r := ParseTableRef(id)
		if r.Table != ref.Table {
			continue
		}
		if r.Dataset == "" {
			return true
		}
		if r.Dataset == ref.Dataset && (r.Project == "" || r.Project == ref.Project) {
			return true
		}
	}
	return false
}

// Snapshot is the read-only input of one run.
type Snapshot struct {
	Tables  []TableMetadata `json:"tables"`
	Queries []QueryRecord   `json:"queries"`
}

// TableByID indexes tables by dotted identifier and by bare table name.
// Bare names that are ambiguous across datasets are left out.
func (s *Snapshot) TableByID() map[string]*TableMetadata {
	out := make(map[string]*TableMetadata, len(s.Tables)*2)
	ambiguous := make(map[string]bool)
	for i := range s.Tables {
		t := &s.Tables[i]
		out[t.ID()] = t
		if t.Ref.Dataset != "" {
			out[t.Ref.Dataset+"."+t.Ref.Table] = t
		}
		if prev, seen := out[t.Ref.Table]; seen && prev != t {
			ambiguous[t.Ref.Table] = true
		}
		out[t.Ref.Table] = t
	}
	for name := range ambiguous {
		delete(out, name)
	}
	return out
}

// QueriesFor returns the queries that reference the table, in input order.
func (s *Snapshot) QueriesFor(ref TableRef) []QueryRecord {
	var out []QueryRecord
	for i := range s.Queries {
		if s.Queries[i].References(ref) {
			out = append(out, s.Queries[i])
		}
	}
	return out
}
