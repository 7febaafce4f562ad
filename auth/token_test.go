package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Issue_And_Parse_Token(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer([]byte("unit-test-key"), time.Hour)

	signed, jti, err := issuer.Issue("alice")
	req.NoError(err)
	req.NotEmpty(signed)
	req.NotEmpty(jti)

	claims, err := issuer.Parse(signed)
	req.NoError(err)
	req.Equal("alice", claims.Username)
	req.Equal(jti, claims.ID)
	req.Equal("lan-chat", claims.Issuer)
}

func Test_Parse_Rejects_Foreign_Key(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer([]byte("key-one"), time.Hour)
	other := NewTokenIssuer([]byte("key-two"), time.Hour)

	signed, _, err := issuer.Issue("alice")
	req.NoError(err)

	_, err = other.Parse(signed)
	req.Error(err)
}

func Test_Parse_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer([]byte("unit-test-key"), -time.Minute)

	signed, _, err := issuer.Issue("alice")
	req.NoError(err)

	_, err = issuer.Parse(signed)
	req.Error(err)
}

func Test_Every_Token_Gets_A_Fresh_Jti(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer([]byte("unit-test-key"), time.Hour)

	_, first, err := issuer.Issue("alice")
	req.NoError(err)
	_, second, err := issuer.Issue("alice")
	req.NoError(err)

	req.NotEqual(first, second)
}
