package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "gst.registrations", []string{"gstin"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"gst", "registrations"}, []string{"gstin", "city"}).WillReturnResult(2)

	rows := [][]any{{"27AAA", "Pune"}, {"27BBB", "Mumbai"}}
	n, err := CopyFrom(context.Background(), mock, "gst.registrations", []string{"gstin", "city"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"registrations"}, []string{"gstin"}).WillReturnError(fmt.Errorf("permission denied"))

	_, err = CopyFrom(context.Background(), mock, "registrations", []string{"gstin"}, [][]any{{"27AAA"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO registrations")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, pgx.Identifier{"geo", "gst_shapes"}, Identifier("geo.gst_shapes"))
	assert.Equal(t, pgx.Identifier{"registrations"}, Identifier("registrations"))
}

func TestConnect_EmptyDSN(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.Error(t, err)
}
