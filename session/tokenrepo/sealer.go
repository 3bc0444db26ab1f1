package tokenrepo

import (
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/oauth2"
)

const nonceSize = 24

// Sealer encrypts stored tokens with NaCl secretbox.
type Sealer struct {
	key [32]byte
}

// NewSealer takes a 32 byte key as 64 hex characters.
func NewSealer(hexKey string) (*Sealer, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "decode seal key")
	}
	if len(raw) != 32 {
		return nil, errors.Errorf("seal key must be 32 bytes, got %d", len(raw))
	}
	s := &Sealer{}
	copy(s.key[:], raw)
	return s, nil
}

// Seal returns nonce || box.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "read nonce")
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, errors.New("sealed token too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errors.New("sealed token failed authentication")
	}
	return plain, nil
}

// codec turns tokens into stored bytes, sealing them when a Sealer is set.
type codec struct {
	sealer *Sealer
}

func (c codec) encode(tok *oauth2.Token) ([]byte, error) {
	data, err := marshalToken(tok)
	if err != nil {
		return nil, err
	}
	if c.sealer == nil {
		return data, nil
	}
	return c.sealer.Seal(data)
}

func (c codec) decode(data []byte) (*oauth2.Token, error) {
	if c.sealer != nil {
		plain, err := c.sealer.Open(data)
		if err != nil {
			return nil, err
		}
		data = plain
	}
	return unmarshalToken(data)
}
