package domain

import (
	"fmt"
	"strings"
)

// SchemaText renders a table as the plain-text block that is embedded and shown to the model.
func SchemaText(t *TableMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n", t.ID())
	fmt.Fprintf(&b, "Size: %.2f GB\n", t.SizeGB())
	fmt.Fprintf(&b, "Rows: %d\n", t.NumRows)

	switch {
	case t.PartitionColumn() != "":
		fmt.Fprintf(&b, "Partitioned: %s\n", t.PartitionColumn())
	case t.IsPartitioned():
		fmt.Fprintf(&b, "Partitioned: ingestion time (%s)\n", t.Partitioning.Type)
	default:
		b.WriteString("Partitioned: No\n")
	}
	if t.IsClustered() {
		fmt.Fprintf(&b, "Clustered: %s\n", strings.Join(t.Clustering, ", "))
	} else {
		b.WriteString("Clustered: No\n")
	}

	b.WriteString("\nSchema:\n")
	for _, c := range t.Columns {
		mode := c.Mode
		if mode == "" {
			mode = "NULLABLE"
		}
		fmt.Fprintf(&b, "- %s (%s, %s)\n", c.Name, c.Type, mode)
	}
	return b.String()
}
