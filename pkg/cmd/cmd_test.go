package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/idpflow/pkg/channels/kafka"
	"github.com/dukex/idpflow/pkg/persistence/file"
	"github.com/dukex/idpflow/pkg/storage"
	"github.com/dukex/idpflow/pkg/testutil"
)

func TestParsePersistenceProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url      string
		provider string
		wantErr  bool
	}{
		{"file:///var/lib/idpflow", "file", false},
		{"./data", "file", false},
		{"postgres://idpflow@localhost/idpflow", "postgres", false},
		{"postgresql://idpflow@localhost/idpflow", "postgresql", false},
		{"mysql://localhost/idpflow", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()

			provider, err := parsePersistenceProvider(tt.url)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.provider, provider)
		})
	}
}

func TestNewPersistence_File(t *testing.T) {
	t.Parallel()

	p, err := NewPersistence(context.Background(), testutil.Logger(), "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)
	assert.NoError(t, p.HealthCheck(context.Background()))

	_, err = NewPersistence(context.Background(), testutil.Logger(), "redis://localhost")
	assert.Error(t, err)
}

func TestNewEventBus(t *testing.T) {
	t.Parallel()

	bus, err := NewEventBus("", "", testutil.Logger())
	require.NoError(t, err)
	assert.NotEmpty(t, bus.GenerateID())
	require.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", " , ", testutil.Logger())
	require.ErrorIs(t, err, kafka.ErrNoBrokers)

	_, err = NewEventBus("nats", "", testutil.Logger())
	assert.Error(t, err)
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	cfg := BackendConfig{
		ExtractionURL:  "http://localhost:8000/api",
		SimulatedDelay: time.Millisecond,
		SuccessRate:    1,
		HTTPTimeout:    time.Second,
	}

	reg := NewRegistry(testutil.Logger(), cfg, storage.NewDiskStore(t.TempDir(), testutil.Logger()))

	_, ok := reg.HealthCheck()
	assert.True(t, ok)
	assert.NotNil(t, NewDirectory(cfg, testutil.Logger()))
}
