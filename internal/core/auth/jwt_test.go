package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWTer() *JWTer {
	return &JWTer{Secret: []byte("test-secret-at-least-32-chars-long!!"), Issuer: "dog-catalog-test", TTL: 15 * time.Minute}
}

func TestJWTer_IssueAndParse(t *testing.T) {
	j := newJWTer()
	tok, exp, err := j.Issue(Identity{ID: "u1", Name: "Anna", Email: "a@x.test", Role: "admin"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{ID: "u1", Name: "Anna", Email: "a@x.test", Role: "admin"}, c.Identity())
}

func TestJWTer_Expired(t *testing.T) {
	j := newJWTer()
	j.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err := j.Issue(Identity{ID: "u1", Role: "admin"})
	require.NoError(t, err)

	j.Now = nil
	_, err = j.Parse(tok)
	assert.Error(t, err)
}

func TestJWTer_WrongSecretOrIssuer(t *testing.T) {
	tok, _, err := newJWTer().Issue(Identity{ID: "u1", Role: "admin"})
	require.NoError(t, err)

	other := newJWTer()
	other.Secret = []byte("rotated-secret-rotated-secret-rotated")
	_, err = other.Parse(tok)
	assert.Error(t, err, "rotating the secret revokes every session")

	other = newJWTer()
	other.Issuer = "someone-else"
	_, err = other.Parse(tok)
	assert.Error(t, err)
}

func TestJWTer_Garbage(t *testing.T) {
	_, err := newJWTer().Parse("not.a.token")
	assert.Error(t, err)
	_, err = newJWTer().Parse("")
	assert.Error(t, err)
}

func TestJWTer_EmptySecret(t *testing.T) {
	j := newJWTer()
	j.Secret = nil
	_, _, err := j.Issue(Identity{ID: "u1"})
	assert.Error(t, err)
}
