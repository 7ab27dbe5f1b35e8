package password

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"unicode"
)

const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	similarChars   = "iIlLoO0"
	ambiguousChars = "B8G6I1l0OQDS5Z2"

	// GenerateMinLength and GenerateMaxLength bound [Generate] requests.
	GenerateMinLength = 6
	GenerateMaxLength = 32
)

// Spec controls [Generate] output.
type Spec struct {
	Length           int
	IncludeUppercase bool
	IncludeLowercase bool
	IncludeDigits    bool
	IncludeSpecial   bool
	ExcludeSimilar   bool
	ExcludeAmbiguous bool
}

// Strength scores a password in [0, 1]. Seven signals contribute one point
// each: two for length >= 12 (one otherwise), one per character class
// present, and one when no character repeats.
func Strength(password string) float64 {
	length := len(password)
	score := 1
	if length >= 12 {
		score = 2
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	seen := make(map[rune]struct{}, length)
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
		seen[r] = struct{}{}
	}

	if hasLower {
		score++
	}
	if hasUpper {
		score++
	}
	if hasDigit {
		score++
	}
	if hasSpecial {
		score++
	}
	if len(seen) == len([]rune(password)) {
		score++
	}

	return float64(score) / 7
}

// Generate produces a random password matching spec, resampling until the
// result reaches the best strength the spec can achieve (every included
// class present, no repeated characters). The charset is built from the
// included classes minus any excluded lookalike characters.
func Generate(spec Spec) (string, error) {
	if spec.Length < GenerateMinLength {
		return "", errors.New("password length must be at least 6")
	}
	if spec.Length > GenerateMaxLength {
		return "", errors.New("password length must be at most 32")
	}

	var charset strings.Builder
	if spec.IncludeUppercase {
		charset.WriteString(upperChars)
	}
	if spec.IncludeLowercase {
		charset.WriteString(lowerChars)
	}
	if spec.IncludeDigits {
		charset.WriteString(digitChars)
	}
	if spec.IncludeSpecial {
		charset.WriteString(specialChars)
	}

	chars := charset.String()
	if spec.ExcludeSimilar {
		chars = strip(chars, similarChars)
	}
	if spec.ExcludeAmbiguous {
		chars = strip(chars, ambiguousChars)
	}
	if chars == "" {
		return "", errors.New("character set is empty")
	}

	target := maxAchievable(spec, len(chars))

	// A draw over a multi-class charset reaches the target within a handful
	// of attempts; the cap only guards against pathological luck.
	for attempt := 0; attempt < 256; attempt++ {
		candidate, err := draw(chars, spec.Length)
		if err != nil {
			return "", err
		}
		if Strength(candidate) >= target {
			return candidate, nil
		}
	}

	return "", errors.New("spec cannot produce a strong password")
}

func maxAchievable(spec Spec, charsetSize int) float64 {
	score := 1
	if spec.Length >= 12 {
		score = 2
	}
	for _, included := range []bool{spec.IncludeUppercase, spec.IncludeLowercase, spec.IncludeDigits, spec.IncludeSpecial} {
		if included {
			score++
		}
	}
	// The no-repeats point is reachable only when the charset has enough
	// distinct characters to fill the length.
	if charsetSize >= spec.Length {
		score++
	}
	return float64(score) / 7
}

func draw(chars string, length int) (string, error) {
	max := big.NewInt(int64(len(chars)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = chars[n.Int64()]
	}
	return string(out), nil
}

func strip(chars, exclude string) string {
	var out strings.Builder
	for _, r := range chars {
		if !strings.ContainsRune(exclude, r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}
