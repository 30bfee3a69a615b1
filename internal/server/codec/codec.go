// Package codec turns a token payload into a compact self-verifying string
// and back:
//
//	CM1.<base64url(payload json)>.<base64url(hmac-sha256(payload json))>
//
// Tokens are signed, not encrypted.
package codec

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/dmitrijs2005/classmint/internal/common"
	"github.com/dmitrijs2005/classmint/internal/server/models"
)

// Format is the leading tag of every token string.
const Format = "CM1"

const nonceSize = 32

var segment = base64.RawURLEncoding.Strict()

// Codec signs and verifies tokens with one key. It is safe for concurrent use.
type Codec struct {
	key   []byte
	cache *lru.Cache
}

// New returns a Codec using key for the MAC. A positive cacheSize keeps that
// many successfully verified tokens in memory; failures are never cached.
func New(key []byte, cacheSize int) (*Codec, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("codec: empty key")
	}
	c := &Codec{key: append([]byte(nil), key...)}
	if cacheSize > 0 {
		cache, err := lru.New(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("codec: cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// NewNonce returns fresh randomness for a payload.
func NewNonce() (string, error) {
	return common.MakeRandHexString(nonceSize)
}

// Sign serializes p canonically and appends its MAC.
func (c *Codec) Sign(p models.TokenPayload) (string, error) {
	body, err := canonical(p)
	if err != nil {
		return "", fmt.Errorf("codec: encode payload: %w", err)
	}
	return Format + "." + segment.EncodeToString(body) + "." + segment.EncodeToString(c.mac(body)), nil
}

// Verify checks the token's structure and MAC and returns the payload.
// Every failure is common.ErrBadSignature; there is no partial success.
func (c *Codec) Verify(token string) (models.TokenPayload, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(token); ok {
			return v.(models.TokenPayload), nil
		}
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] != Format {
		return models.TokenPayload{}, common.ErrBadSignature
	}
	body, err := segment.DecodeString(parts[1])
	if err != nil {
		return models.TokenPayload{}, common.ErrBadSignature
	}
	sig, err := segment.DecodeString(parts[2])
	if err != nil {
		return models.TokenPayload{}, common.ErrBadSignature
	}
	if !hmac.Equal(c.mac(body), sig) {
		return models.TokenPayload{}, common.ErrBadSignature
	}

	var p models.TokenPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.TokenPayload{}, common.ErrBadSignature
	}

	if c.cache != nil {
		c.cache.Add(token, p)
	}
	return p, nil
}

func (c *Codec) mac(body []byte) []byte {
	m := hmac.New(sha256.New, c.key)
	m.Write(body)
	return m.Sum(nil)
}

func canonical(p models.TokenPayload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
