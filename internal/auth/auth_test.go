package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "unit-test-secret", Issuer: "telemetry.identity", TTL: time.Hour}

func TestIssueVerifyRoundTrip(t *testing.T) {
	token, err := Issue("dev-1", testConfig)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := Verify(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "dev-1", claims.DeviceID)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestVerifyExpiredToken(t *testing.T) {
	expired := testConfig
	expired.TTL = -time.Minute

	token, err := Issue("dev-1", expired)
	require.NoError(t, err)

	_, err = Verify(token, testConfig)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := Issue("dev-1", testConfig)
	require.NoError(t, err)

	other := testConfig
	other.Secret = "a-different-secret"
	_, err = Verify(token, other)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := Verify("not-a-jwt", testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	_, err := Verify("   ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestIssueRequiresDeviceID(t *testing.T) {
	_, err := Issue("  ", testConfig)
	require.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		token  string
		err    error
	}{
		{name: "valid", header: "Bearer abc.def.ghi", token: "abc.def.ghi"},
		{name: "case insensitive scheme", header: "bearer abc", token: "abc"},
		{name: "missing", header: "", err: ErrMissingToken},
		{name: "blank", header: "   ", err: ErrMissingToken},
		{name: "no scheme", header: "abc.def.ghi", err: ErrMalformedToken},
		{name: "wrong scheme", header: "Basic abc", err: ErrMalformedToken},
		{name: "too many parts", header: "Bearer abc def", err: ErrMalformedToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := ExtractToken(tc.header)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.token, token)
		})
	}
}
