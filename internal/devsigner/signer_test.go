package devsigner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pksalink/internal/devsigner"
	"pksalink/internal/domain"
)

func TestParseLink_RoundTrip(t *testing.T) {
	want := domain.AuthLink{Account: "alice", UUID: "u1", Key: "a2V5", Host: "relay.test"}
	got, err := devsigner.ParseLink(want.URI())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestParseLink_Rejects(t *testing.T) {
	for _, uri := range []string{
		"https://example.com",
		domain.AuthLinkScheme + "!!!",
		domain.AuthLinkScheme + "e30=", // {}
	} {
		_, err := devsigner.ParseLink(uri)
		require.ErrorIs(t, err, devsigner.ErrBadLink, uri)
	}
}

func TestAcceptLink_RejectsBadKey(t *testing.T) {
	s, err := devsigner.New(devsigner.Config{Accounts: []domain.Account{"alice"}})
	require.NoError(t, err)
	require.Len(t, s.PublicKey(), 64)

	link := domain.AuthLink{Account: "alice", UUID: "u1", Key: "not base64!"}
	require.ErrorIs(t, s.AcceptLink(link.URI()), devsigner.ErrBadLink)
}
