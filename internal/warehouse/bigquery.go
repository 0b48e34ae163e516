package warehouse

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/gkobilansky/ab-goat/internal/dataset"
)

// BigQuery runs queries against a Google BigQuery project.
type BigQuery struct {
	client    *bigquery.Client
	ProjectID string
	Location  string
}

// BigQueryOptions configures NewBigQuery. Exactly one of CredentialsFile and
// CredentialsJSON may be set; with neither, application default
// credentials are used.
type BigQueryOptions struct {
	ProjectID       string
	Location        string
	CredentialsFile string
	CredentialsJSON string
}

func NewBigQuery(ctx context.Context, opts BigQueryOptions) (*BigQuery, error) {
	if opts.ProjectID == "" {
		return nil, errors.New("bigquery project id is required")
	}

	var clientOpts []option.ClientOption
	switch {
	case opts.CredentialsFile != "" && opts.CredentialsJSON != "":
		return nil, errors.New("set either a credentials file or inline credentials, not both")
	case opts.CredentialsFile != "":
		if _, err := os.Stat(opts.CredentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", opts.CredentialsFile)
		}
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	case opts.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(opts.CredentialsJSON)))
	}

	client, err := bigquery.NewClient(ctx, opts.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}

	return &BigQuery{client: client, ProjectID: opts.ProjectID, Location: opts.Location}, nil
}

// Query runs sql and reads every row. NULLs come back as nil values.
func (b *BigQuery) Query(ctx context.Context, sql string) (*dataset.Dataset, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, ErrEmptyQuery
	}

	q := b.client.Query(sql)
	if b.Location != "" {
		q.Location = b.Location
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}

	var rows []dataset.Record
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+1, err)
		}

		rec := make(dataset.Record, len(row))
		for k, v := range row {
			rec[k] = normalize(v)
		}
		rows = append(rows, rec)
	}

	columns := make([]string, len(it.Schema))
	for i, f := range it.Schema {
		columns[i] = f.Name
	}

	return dataset.New(columns, rows), nil
}

func (b *BigQuery) Close() error {
	return b.client.Close()
}

// normalize turns BigQuery values into the plain Go values the JSON cache
// hands back, so a cache hit and a fresh query see the same types.
// Timestamps become RFC 3339 strings, BYTES base64, NUMERIC decimal strings
// and civil dates their canonical text.
func normalize(v bigquery.Value) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case []byte:
		return base64.StdEncoding.EncodeToString(t)
	case *big.Rat:
		if t == nil {
			return nil
		}
		return decimalString(t)
	case fmt.Stringer:
		return t.String()
	case []bigquery.Value:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case map[string]bigquery.Value:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	default:
		return t
	}
}

// decimalString renders NUMERIC and BIGNUMERIC values exactly, without
// trailing zeros.
func decimalString(r *big.Rat) string {
	s := r.FloatString(bigquery.BigNumericScaleDigits)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
