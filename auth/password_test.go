package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassword_HashAndCompare(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("Sup3r-Secret-Pass!")
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword("Sup3r-Secret-Pass!", hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong-password", hash)
	req.NoError(err)
	req.False(match)
}

func TestPassword_UniqueSalts(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("Sup3r-Secret-Pass!")
	req.NoError(err)
	second, err := HashPassword("Sup3r-Secret-Pass!")
	req.NoError(err)

	// Same password, different salt, different hash
	req.NotEqual(first, second)
}

func TestPassword_CompareRejectsGarbage(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("whatever", "not-a-phc-string")
	req.Error(err)
}

func TestPasswordComplexity(t *testing.T) {
	req := require.New(t)

	req.True(isPasswordComplex("Sup3r-Secret-Pass!"))
	req.False(isPasswordComplex("alllowercase123!"))
	req.False(isPasswordComplex("NoDigitsHere!"))
	req.False(isPasswordComplex("NoSpecial123ABC"))
}
