package sep10

import (
	"testing"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellar-ramp/sdk-go/errors"
)

const testHomeDomain = "anchor.example.com"

// buildChallenge constructs a server-issued challenge transaction the way an
// anchor would: source is the server account at sequence 0, the first
// operation is a manage_data entry named "<home_domain> auth" sourced from
// the authenticating account.
func buildChallenge(t *testing.T, server *keypair.Full, account string, opName string, seq int64, maxTime int64) string {
	t.Helper()

	now := time.Now()
	if maxTime == 0 {
		maxTime = now.Add(5 * time.Minute).Unix()
	}

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: server.Address(), Sequence: seq},
		IncrementSequenceNum: false,
		Operations: []txnbuild.Operation{
			&txnbuild.ManageData{
				Name:          opName,
				Value:         []byte("dGVzdC1ub25jZS12YWx1ZS10ZXN0LW5vbmNlLXZhbHVlISEh"),
				SourceAccount: account,
			},
		},
		BaseFee: 100,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimebounds(now.Add(-time.Hour).Unix(), maxTime),
		},
	})
	require.NoError(t, err)

	signed, err := tx.Sign("Test SDF Network ; September 2015", server)
	require.NoError(t, err)

	xdr, err := signed.Base64()
	require.NoError(t, err)
	return xdr
}

func testParams(server *keypair.Full, account string) ChallengeParams {
	return ChallengeParams{
		ServerSigningKey:  server.Address(),
		NetworkPassphrase: "Test SDF Network ; September 2015",
		HomeDomain:        testHomeDomain,
		Account:           account,
	}
}

func TestValidateChallengeAccepts(t *testing.T) {
	server := keypair.MustRandom()
	user := keypair.MustRandom()

	xdr := buildChallenge(t, server, user.Address(), testHomeDomain+" auth", 0, 0)
	assert.NoError(t, ValidateChallenge(xdr, testParams(server, user.Address())))
}

func TestValidateChallengeRejectsGarbage(t *testing.T) {
	server := keypair.MustRandom()
	user := keypair.MustRandom()

	err := ValidateChallenge("not-a-transaction", testParams(server, user.Address()))
	require.Error(t, err)

	var re *errors.RampError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, errors.CHALLENGE_INVALID, re.Code)
	assert.Equal(t, errors.KindValidation, re.Kind)
}

func TestValidateChallengeRejectsWrongSource(t *testing.T) {
	server := keypair.MustRandom()
	impostor := keypair.MustRandom()
	user := keypair.MustRandom()

	xdr := buildChallenge(t, impostor, user.Address(), testHomeDomain+" auth", 0, 0)
	err := ValidateChallenge(xdr, testParams(server, user.Address()))
	require.Error(t, err)

	var re *errors.RampError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, errors.CHALLENGE_INVALID, re.Code)
}

func TestValidateChallengeRejectsNonZeroSequence(t *testing.T) {
	server := keypair.MustRandom()
	user := keypair.MustRandom()

	xdr := buildChallenge(t, server, user.Address(), testHomeDomain+" auth", 42, 0)
	err := ValidateChallenge(xdr, testParams(server, user.Address()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence number")
}

func TestValidateChallengeRejectsWrongOperationName(t *testing.T) {
	server := keypair.MustRandom()
	user := keypair.MustRandom()

	xdr := buildChallenge(t, server, user.Address(), "evil.example.com auth", 0, 0)
	err := ValidateChallenge(xdr, testParams(server, user.Address()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first operation key")
}

func TestValidateChallengeRejectsWrongOperationSource(t *testing.T) {
	server := keypair.MustRandom()
	user := keypair.MustRandom()
	other := keypair.MustRandom()

	xdr := buildChallenge(t, server, other.Address(), testHomeDomain+" auth", 0, 0)
	err := ValidateChallenge(xdr, testParams(server, user.Address()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authenticating account")
}

func TestValidateChallengeRejectsExpired(t *testing.T) {
	server := keypair.MustRandom()
	user := keypair.MustRandom()

	expired := time.Now().Add(-time.Minute).Unix()
	xdr := buildChallenge(t, server, user.Address(), testHomeDomain+" auth", 0, expired)
	err := ValidateChallenge(xdr, testParams(server, user.Address()))
	require.Error(t, err)

	var re *errors.RampError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, errors.CHALLENGE_EXPIRED, re.Code)
}
