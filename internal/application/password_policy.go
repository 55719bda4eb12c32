package application

import (
	"strings"
	"unicode"
)

const minPasswordLength = 8

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// maxSimilarity is the ratio above which a password counts as too close to
// a user attribute.
const maxSimilarity = 0.7

var commonPasswords = map[string]struct{}{}

func init() {
	for _, p := range strings.Fields(`
		password password1 password123 passw0rd 12345678 123456789 1234567890
		qwerty qwerty123 qwertyuiop 1q2w3e4r 1qaz2wsx abc12345 abcd1234 iloveyou
		admin123 administrator welcome welcome1 letmein letmein1 football baseball
		sunshine princess dragon monkey trustno1 superman batman starwars master
		login123 changeme secret123 whatever 11111111 00000000 87654321 asdfghjk
		zxcvbnm1 q1w2e3r4 computer internet michelle jennifer shadow1 mustang1`) {
		commonPasswords[p] = struct{}{}
	}
}

// PasswordAttributes are user fields a password must not resemble.
type PasswordAttributes struct {
	Email      string
	FirstName  string
	LastName   string
	MiddleName string
}

// CheckPassword returns every policy rule plain breaks, in a stable order.
func CheckPassword(plain string, attrs PasswordAttributes) []string {
	var problems []string
	if len([]rune(plain)) < minPasswordLength {
		problems = append(problems, "password must contain at least 8 characters")
	}
	if len(plain) > maxPasswordBytes {
		problems = append(problems, "password must be at most 72 bytes long")
	}
	if plain != "" && isAllDigits(plain) {
		problems = append(problems, "password is entirely numeric")
	}
	if _, ok := commonPasswords[strings.ToLower(plain)]; ok {
		problems = append(problems, "password is too common")
	}
	if tooSimilar(plain, attrs) {
		problems = append(problems, "password is too similar to your personal information")
	}
	return problems
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func tooSimilar(plain string, attrs PasswordAttributes) bool {
	pw := strings.ToLower(plain)
	if pw == "" {
		return false
	}
	local := attrs.Email
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	for _, v := range []string{local, attrs.Email, attrs.FirstName, attrs.LastName, attrs.MiddleName} {
		v = strings.ToLower(strings.TrimSpace(v))
		if len(v) < 3 {
			continue
		}
		if similarity(pw, v) >= maxSimilarity {
			return true
		}
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
			if len(part) >= 3 && similarity(pw, part) >= maxSimilarity {
				return true
			}
		}
	}
	return false
}

// similarity is the Ratcliff/Obershelp ratio 2*M/T over runes.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matching(ra, rb)) / float64(total)
}

func matching(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestCommon(a, b)
	if size == 0 {
		return 0
	}
	return size + matching(a[:ai], b[:bi]) + matching(a[ai+size:], b[bi+size:])
}

func longestCommon(a, b []rune) (int, int, int) {
	bestA, bestB, best := 0, 0, 0
	prev := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		cur := make([]int, len(b)+1)
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best, bestA, bestB = cur[j], i-cur[j], j-cur[j]
				}
			}
		}
		prev = cur
	}
	return bestA, bestB, best
}
