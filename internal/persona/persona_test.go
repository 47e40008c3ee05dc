package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	banking, err := reg.Lookup(Banking)
	require.NoError(t, err)
	assert.Equal(t, "Sarah Johnson", banking.Name)
	assert.Equal(t, "SecureBank Inc.", banking.Organization)

	otp, ok := banking.Value("otp")
	require.True(t, ok)
	assert.Equal(t, "847392", otp)
	assert.Equal(t, TierCritical, banking.Tier("otp"))
	assert.Equal(t, TierNormal, banking.Tier("location"))
	assert.Equal(t, TierNone, banking.Tier("case_number"))

	// password is in the banking vocabulary but the persona has no value for it
	assert.True(t, banking.InVocabulary("password"))
	assert.False(t, banking.Offers("password"))

	assert.Len(t, reg.All(), len(Domains))
}

func TestCategoriesAreDomainScoped(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	telecom, err := reg.Lookup(Telecom)
	require.NoError(t, err)
	law, err := reg.Lookup(Law)
	require.NoError(t, err)

	assert.True(t, telecom.InVocabulary("billing_address"))
	assert.False(t, law.InVocabulary("billing_address"))
	assert.Equal(t, TierNormal, law.Tier("address"))
}

func TestVocabularyIsCopied(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	p, err := reg.Lookup(Banking)
	require.NoError(t, err)

	vocab := p.Vocabulary()
	vocab[0] = "tampered"
	assert.NotEqual(t, "tampered", p.Vocabulary()[0])
}

func TestParseDomain(t *testing.T) {
	tests := []struct {
		in      string
		want    Domain
		wantErr bool
	}{
		{"Banking", Banking, false},
		{"  TELECOM ", Telecom, false},
		{"law", Law, false},
		{"healthcare", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDomain(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrUnknownDomain)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRejectsInvalidTables(t *testing.T) {
	t.Run("duplicate vocabulary", func(t *testing.T) {
		_, err := Parse([]byte(`
banking:
  name: A
  vocabulary: [otp, otp]
`))
		require.ErrorContains(t, err, "duplicate category")
	})

	t.Run("unknown domain", func(t *testing.T) {
		_, err := Parse([]byte(`
healthcare:
  name: A
  vocabulary: [otp]
`))
		require.ErrorIs(t, err, ErrUnknownDomain)
	})

	t.Run("missing domain", func(t *testing.T) {
		_, err := Parse([]byte(`
banking:
  name: A
  vocabulary: [otp]
`))
		require.ErrorContains(t, err, "missing")
	})
}
