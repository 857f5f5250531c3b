package warehouse

import (
	"cloud.google.com/go/bigquery"
)

// Column is one field of the traffic table.
type Column struct {
	Name     string
	Type     bigquery.FieldType
	Required bool
}

// Columns is the fixed traffic table layout, in insert order.
var Columns = []Column{
	{Name: "domain", Type: bigquery.StringFieldType, Required: true},
	{Name: "date", Type: bigquery.DateFieldType, Required: true},
	{Name: "visits", Type: bigquery.FloatFieldType},
	{Name: "avg_visit_duration", Type: bigquery.FloatFieldType},
	{Name: "pages_per_visit", Type: bigquery.FloatFieldType},
	{Name: "bounce_rate", Type: bigquery.FloatFieldType},
	{Name: "source", Type: bigquery.StringFieldType},
	{Name: "ingested_at", Type: bigquery.TimestampFieldType},
}

const (
	partitionColumn = "date"
	clusterColumn   = "domain"
)

// bigQuerySchema converts Columns into a BigQuery schema.
func bigQuerySchema() bigquery.Schema {
	schema := make(bigquery.Schema, 0, len(Columns))
	for _, c := range Columns {
		schema = append(schema, &bigquery.FieldSchema{
			Name:     c.Name,
			Type:     c.Type,
			Required: c.Required,
		})
	}
	return schema
}

func columnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}
