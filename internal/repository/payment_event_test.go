package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Alturino/marketclub/internal/config"
	"github.com/Alturino/marketclub/internal/infra"
)

func setup(t *testing.T, c context.Context) (*pgxpool.Pool, *postgres.PostgresContainer) {
	pgContainer, err := postgres.Run(
		c,
		"postgres:16.6-alpine3.21",
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithDatabase("marketclub"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed running postgres container with error: %s", err)
	}

	pgConnStr, err := pgContainer.ConnectionString(c, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed getting postgres connection string with error: %s", err)
	}

	pool, err := pgxpool.New(c, pgConnStr)
	if err != nil {
		t.Fatalf("failed creating postgres pool with error: %s", err)
	}
	if err = pool.Ping(c); err != nil {
		t.Fatalf("failed ping postgres pool with error: %s", err)
	}

	err = infra.Migrate(c, pool, config.Database{
		Name:          "marketclub",
		MigrationPath: "file://../../migrations",
	})
	if err != nil {
		t.Fatalf("failed migrating with error: %s", err)
	}
	return pool, pgContainer
}

func teardown(t *testing.T, pool *pgxpool.Pool, pgContainer *postgres.PostgresContainer) {
	pool.Close()
	if err := testcontainers.TerminateContainer(pgContainer); err != nil {
		t.Fatalf("failed to terminate container: %s", err)
	}
}

func TestPaymentEventLedger(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	c, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, pgContainer := setup(t, c)
	defer teardown(t, pool, pgContainer)

	queries := New(pool)
	key := IsPaymentEventProcessedParams{TransactionID: "tx-1", Status: "APPROVED"}

	processed, err := queries.IsPaymentEventProcessed(c, key)
	require.NoError(t, err)
	assert.False(t, processed)

	params := InsertPaymentEventParams{
		TransactionID: "tx-1",
		Status:        "APPROVED",
		Reference:     "ORDER_1700000000000_ab12cd34",
		Event:         "transaction.updated",
		AmountInCents: 11900000,
	}
	rows, err := queries.InsertPaymentEvent(c, params)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	rows, err = queries.InsertPaymentEvent(c, params)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows, "duplicate delivery must not insert twice")

	processed, err = queries.IsPaymentEventProcessed(c, key)
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = queries.IsPaymentEventProcessed(c, IsPaymentEventProcessedParams{TransactionID: "tx-1", Status: "VOIDED"})
	require.NoError(t, err)
	assert.False(t, processed)

	events, err := queries.FindPaymentEventsByReference(c, "ORDER_1700000000000_ab12cd34")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(11900000), events[0].AmountInCents)
	assert.True(t, events[0].ProcessedAt.Valid)
}
