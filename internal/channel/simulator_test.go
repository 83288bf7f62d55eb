package channel

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telenexus/gateway-server-go/internal/composer"
)

func TestSimulatorPair(t *testing.T) {
	sim := NewSimulator()

	t.Run("returns code in XXXX-XXXX format", func(t *testing.T) {
		pairing, err := sim.Pair(context.Background(), "inst-1", "token-1")
		require.NoError(t, err)

		pattern := regexp.MustCompile(`^[A-Z2-9]{4}-[A-Z2-9]{4}$`)
		assert.True(t, pattern.MatchString(pairing.Code), "got: %s", pairing.Code)
	})

	t.Run("embeds instance and session token in QR payload", func(t *testing.T) {
		pairing, err := sim.Pair(context.Background(), "inst-1", "token-1")
		require.NoError(t, err)
		assert.Equal(t, "telenexus:inst-1:token-1", pairing.QRPayload)
	})

	t.Run("respects cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := sim.Pair(ctx, "inst-1", "token-1")
		assert.Error(t, err)
	})
}

func TestSimulatorSend(t *testing.T) {
	sim := NewSimulator()
	msg, err := composer.Text(composer.TextInput{PhoneNumber: "254700000000", Message: "hi"})
	require.NoError(t, err)

	t.Run("succeeds for composed message", func(t *testing.T) {
		assert.NoError(t, sim.Send(context.Background(), msg.PhoneNumber, msg))
	})

	t.Run("fails when context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, sim.Send(ctx, msg.PhoneNumber, msg))
	})
}
