//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/couchcryptid/agromind-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("agromind-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// startPostgres runs a Postgres container and returns its connection string.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("agromind"),
		tcpostgres.WithUsername("agromind"),
		tcpostgres.WithPassword("agromind"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func testRecommendation(id, crop string, at time.Time) domain.Recommendation {
	return domain.Recommendation{
		ID:              id,
		Location:        "Ankara, Türkiye",
		Latitude:        39.93,
		Longitude:       32.85,
		SoilType:        domain.SoilLoamy,
		TextureClass:    domain.TextureClayLoam,
		RecommendedCrop: crop,
		Confidence:      0.61,
		Alternatives:    []domain.CropScore{{Crop: "Barley", Probability: 0.2}},
		TargetMonth:     7,
		Soil:            domain.SoilProfile{PH: 6.5, Nitrogen: 2.5, Phosphorus: 20, Potassium: 200, Clay: 31.2, Sand: 28.8, Silt: 40},
		Climate:         domain.ClimateProfile{Temperature: 23.09, Humidity: 92.47, Month: 7, YearsUsed: 25},
		DefaultsUsed:    []string{},
		CreatedAt:       at,
	}
}
