package channel

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/rs/zerolog/log"

	"github.com/telenexus/gateway-server-go/internal/composer"
)

const pairingCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Simulator is a stand-in provider for environments without a live channel
// account. Pairing codes are real; sends succeed unless the context is done.
type Simulator struct{}

func NewSimulator() *Simulator {
	return &Simulator{}
}

func (s *Simulator) Pair(ctx context.Context, instanceID, sessionToken string) (*Pairing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Pairing{
		Code:      generatePairingCode(),
		QRPayload: QRPayload(instanceID, sessionToken),
	}, nil
}

func (s *Simulator) Send(ctx context.Context, phoneNumber string, msg *composer.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	log.Debug().
		Str("to", phoneNumber).
		Str("kind", string(msg.Kind)).
		Msg("simulated channel send")
	return nil
}

// QRPayload builds the payload encoded into the pairing QR code.
func QRPayload(instanceID, sessionToken string) string {
	return fmt.Sprintf("telenexus:%s:%s", instanceID, sessionToken)
}

func generatePairingCode() string {
	chars := []byte(pairingCodeChars)
	part1 := make([]byte, 4)
	part2 := make([]byte, 4)

	for i := 0; i < 4; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		part1[i] = chars[n.Int64()]
	}
	for i := 0; i < 4; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		part2[i] = chars[n.Int64()]
	}

	return fmt.Sprintf("%s-%s", string(part1), string(part2))
}
