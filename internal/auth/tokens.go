package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/jackzampolin/lumina/internal/id"
	"github.com/jackzampolin/lumina/internal/types"
)

const (
	tokenIssuer   = "lumina-server"
	tokenAudience = "lumina-client"

	// PASETO v4 symmetric key requirements.
	keyBytesSize = 32
	keyHexSize   = 64
)

// Claims are the fields carried in a session token.
type Claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// User returns the identity carried by the claims.
func (c *Claims) User() types.User {
	return types.User{ID: c.Subject, Name: c.Name, Email: c.Email, Picture: c.Picture}
}

// TokenService issues and verifies PASETO v4.local session tokens.
type TokenService struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
}

// GenerateKey returns a new random key in the hex form NewTokenService accepts.
func GenerateKey() (string, error) {
	b := make([]byte, keyBytesSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewTokenService creates a token service from a 64 character hex key.
func NewTokenService(keyHex string, ttl time.Duration) (*TokenService, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d hex characters (%d bytes), got %d", keyHexSize, keyBytesSize, len(keyHex))
	}
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string for PASETO key: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{key: key, ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a token for user and returns it with its claims.
func (s *TokenService) Issue(user types.User) (string, *Claims, error) {
	now := time.Now()

	tokenID, err := id.Generate("sess")
	if err != nil {
		return "", nil, fmt.Errorf("generate token ID: %w", err)
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(user.ID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.ttl))
	token.SetJti(tokenID)
	token.SetString("name", user.Name)
	token.SetString("email", user.Email)
	token.SetString("picture", user.Picture)

	claims := &Claims{
		Name:       user.Name,
		Email:      user.Email,
		Picture:    user.Picture,
		Issuer:     tokenIssuer,
		Subject:    user.ID,
		Audience:   tokenAudience,
		Expiration: now.Add(s.ttl),
		NotBefore:  now,
		IssuedAt:   now,
		TokenID:    tokenID,
	}
	return token.V4Encrypt(s.key, nil), claims, nil
}

// Verify decrypts a token and checks issuer, audience and validity window.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(time.Now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims Claims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	return &claims, nil
}
