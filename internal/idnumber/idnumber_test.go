package idnumber_test

import (
	"strconv"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-onboarding/internal/idnumber"
)

var refTime = time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)

func withCheckDigit(t *testing.T, payload string) string {
	t.Helper()
	d, err := idnumber.CheckDigit(payload)
	require.NoError(t, err)
	return payload + strconv.Itoa(d)
}

func TestValidateRejectsMalformed(t *testing.T) {
	for _, id := range []string{
		"",
		"800101500908",
		"80010150090877",
		"80010150090a7",
		"8001-01500908",
		" 8001015009087",
		"８００１０１５００９０８７",
	} {
		assert.False(t, idnumber.Validate(id), id)
	}
}

func TestValidateChecksum(t *testing.T) {
	assert.True(t, idnumber.Validate("8001015009087"))
	assert.True(t, idnumber.Validate("9202204720083"))
	assert.False(t, idnumber.Validate("8001015009086"))
	assert.False(t, idnumber.Validate("8001015009088"))
}

func TestCheckDigit(t *testing.T) {
	d, err := idnumber.CheckDigit("800101500908")
	require.NoError(t, err)
	assert.Equal(t, 7, d)

	_, err = idnumber.CheckDigit("80010150090")
	assert.ErrorIs(t, err, idnumber.ErrInvalidLength)

	_, err = idnumber.CheckDigit("80010150090x")
	assert.ErrorIs(t, err, idnumber.ErrNotNumeric)
}

func TestDecode(t *testing.T) {
	ident, err := idnumber.DecodeAt("8001015009087", refTime)
	require.NoError(t, err)
	assert.Equal(t, time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC), ident.DateOfBirth)
	assert.Equal(t, idnumber.GenderMale, ident.Gender)
	assert.True(t, ident.Citizen)

	ident, err = idnumber.DecodeAt("9202204720083", refTime)
	require.NoError(t, err)
	assert.Equal(t, time.Date(1992, time.February, 20, 0, 0, 0, 0, time.UTC), ident.DateOfBirth)
	assert.Equal(t, idnumber.GenderFemale, ident.Gender)
}

func TestDecodeIsDeterministic(t *testing.T) {
	first, err := idnumber.DecodeAt("8505150123081", refTime)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := idnumber.DecodeAt("8505150123081", refTime)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDecodeCentury(t *testing.T) {
	ident, err := idnumber.DecodeAt("1503125800088", refTime)
	require.NoError(t, err)
	assert.Equal(t, 2015, ident.DateOfBirth.Year())

	ident, err = idnumber.DecodeAt(withCheckDigit(t, "260101500908"), refTime)
	require.NoError(t, err)
	assert.Equal(t, 2026, ident.DateOfBirth.Year())

	ident, err = idnumber.DecodeAt(withCheckDigit(t, "270101500908"), refTime)
	require.NoError(t, err)
	assert.Equal(t, 1927, ident.DateOfBirth.Year())
}

func TestDecodeResident(t *testing.T) {
	ident, err := idnumber.DecodeAt(withCheckDigit(t, "800101500918"), refTime)
	require.NoError(t, err)
	assert.False(t, ident.Citizen)
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]error{
		"123":                             idnumber.ErrInvalidLength,
		"80010150090a7":                   idnumber.ErrNotNumeric,
		"8001015009086":                   idnumber.ErrChecksum,
		withCheckDigit(t, "801301500908"): idnumber.ErrInvalidDate,
		withCheckDigit(t, "800230500908"): idnumber.ErrInvalidDate,
		withCheckDigit(t, "800100500908"): idnumber.ErrInvalidDate,
	}
	for id, want := range cases {
		ident, err := idnumber.DecodeAt(id, refTime)
		var de *idnumber.DecodeError
		require.ErrorAs(t, err, &de, id)
		assert.Equal(t, id, de.ID)
		assert.ErrorIs(t, err, want, id)
		assert.Equal(t, idnumber.Identity{}, ident)
	}
}

func TestAgeAt(t *testing.T) {
	ident, err := idnumber.DecodeAt("8001015009087", refTime)
	require.NoError(t, err)
	assert.Equal(t, 46, ident.AgeAt(refTime))
	assert.Equal(t, 45, ident.AgeAt(time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)))
}

func TestIdentityJSON(t *testing.T) {
	ident, err := idnumber.DecodeAt("9202204720083", refTime)
	require.NoError(t, err)

	b, err := json.Marshal(ident)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"dateOfBirth":"1992-02-20T00:00:00Z","gender":"female","citizen":true}`,
		string(b))
}
