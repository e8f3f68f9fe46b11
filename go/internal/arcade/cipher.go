package arcade

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ScorePayload is the sealed form of a score submission.
type ScorePayload struct {
	TokenID    string `json:"tid"`
	Score      int64  `json:"score"`
	ElapsedSec int    `json:"elapsed"`
}

// ScoreCipher seals and opens score payloads with NaCl secretbox. Sealing
// hides the score in transit; it does not prove the score was earned.
type ScoreCipher struct {
	key [32]byte
}

func NewScoreCipher(key []byte) (*ScoreCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("score key must be 32 bytes, got %d", len(key))
	}
	c := &ScoreCipher{}
	copy(c.key[:], key)
	return c, nil
}

// Seal returns base64(nonce || box).
func (c *ScoreCipher) Seal(p ScorePayload) (string, error) {
	msg, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal score payload: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], msg, &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Tampered or malformed input is ErrInvalidScore.
func (c *ScoreCipher) Open(sealed string) (ScorePayload, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return ScorePayload{}, fmt.Errorf("%w: malformed sealed score", ErrInvalidScore)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	msg, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return ScorePayload{}, fmt.Errorf("%w: sealed score failed authentication", ErrInvalidScore)
	}
	var p ScorePayload
	if err := json.Unmarshal(msg, &p); err != nil {
		return ScorePayload{}, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	return p, nil
}
