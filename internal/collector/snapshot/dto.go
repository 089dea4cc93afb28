package snapshot

import (
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/sqlref"
)

const bytesPerGB = 1 << 30

type fileDTO struct {
	Tables  []tableDTO `json:"tables"`
	Queries []queryDTO `json:"queries"`
}

type tableDTO struct {
	ProjectID               string            `json:"project_id"`
	DatasetID               string            `json:"dataset_id"`
	TableID                 string            `json:"table_id"`
	SizeBytes               *int64            `json:"table_size_bytes"`
	SizeGB                  *float64          `json:"table_size_gb"`
	RowCount                int64             `json:"row_count"`
	IsPartitioned           bool              `json:"is_partitioned"`
	PartitionField          string            `json:"partition_field"`
	PartitionType           string            `json:"partition_type"`
	PartitionExpirationDays int               `json:"partition_expiration_days"`
	ClusteringFields        json.RawMessage   `json:"clustering_fields"`
	CreationTime            *time.Time        `json:"creation_time"`
	LastModified            *time.Time        `json:"last_modified"`
	LastModifiedDays        *int              `json:"last_modified_days"`
	ExpirationDate          *time.Time        `json:"expiration_date"`
	Labels                  map[string]string `json:"labels"`
	Description             string            `json:"description"`
	HasStreamingBuffer      bool              `json:"has_streaming_buffer"`
	Columns                 []columnDTO       `json:"columns"`
}

type columnDTO struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Mode        string `json:"mode"`
	Description string `json:"description"`
}

type queryDTO struct {
	JobID            string          `json:"job_id"`
	QueryText        string          `json:"query_text"`
	ReferencedTables json.RawMessage `json:"referenced_tables"`
	BytesProcessed   int64           `json:"total_bytes_processed"`
	ExecutionCount   int             `json:"execution_count"`
	CreationTime     *time.Time      `json:"creation_time"`
}

func (d *tableDTO) toDomain(now time.Time) domain.TableMetadata {
	ref := domain.ParseTableRef(d.TableID)
	if d.ProjectID != "" && ref.Project == "" {
		ref.Project = d.ProjectID
	}
	if d.DatasetID != "" && ref.Dataset == "" {
		ref.Dataset = d.DatasetID
	}

	t := domain.TableMetadata{
		Ref:         ref,
		NumRows:     d.RowCount,
		Clustering:  stringList(d.ClusteringFields),
		Labels:      d.Labels,
		Description: d.Description,
		Streaming:   d.HasStreamingBuffer,
		Columns:     make([]domain.Column, 0, len(d.Columns)),
	}

	switch {
	case d.SizeBytes != nil:
		t.SizeBytes = *d.SizeBytes
	case d.SizeGB != nil:
		t.SizeBytes = int64(*d.SizeGB * bytesPerGB)
	}

	if d.IsPartitioned || d.PartitionField != "" || d.PartitionType != "" {
		p := &domain.Partitioning{
			Column:     d.PartitionField,
			Type:       strings.ToUpper(d.PartitionType),
			Expiration: time.Duration(d.PartitionExpirationDays) * 24 * time.Hour,
		}
		if p.Column == "" && p.Type == "" {
			p.Type = "DAY"
		}
		t.Partitioning = p
	}

	if d.CreationTime != nil {
		t.CreatedAt = *d.CreationTime
	}
	switch {
	case d.LastModified != nil:
		t.LastModified = *d.LastModified
	case d.LastModifiedDays != nil:
		t.LastModified = now.AddDate(0, 0, -*d.LastModifiedDays)
	}
	if d.ExpirationDate != nil {
		t.Expiration = *d.ExpirationDate
	}

	for _, c := range d.Columns {
		t.Columns = append(t.Columns, domain.Column{
			Name:        c.Name,
			Type:        strings.ToUpper(c.Type),
			Mode:        strings.ToUpper(c.Mode),
			Description: c.Description,
		})
	}
	return t
}

func (d *queryDTO) toDomain() domain.QueryRecord {
	q := domain.QueryRecord{
		ID:             d.JobID,
		Text:           d.QueryText,
		Tables:         stringList(d.ReferencedTables),
		BytesScanned:   d.BytesProcessed,
		ExecutionCount: d.ExecutionCount,
	}
	if d.CreationTime != nil {
		q.Timestamp = *d.CreationTime
	}
	return q
}

// stringList accepts a JSON array of strings or a string holding a serialized list.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, s := range list {
			if s = sqlref.Clean(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return sqlref.ParseList(s)
	}
	return nil
}
