package auth

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxUsernameAttempts はユーザー名割り当ての試行上限。
const MaxUsernameAttempts = 1000

// MaxUsernameLength はusers.usernameカラムの最大長。
const MaxUsernameLength = 64

// 連番を付けても MaxUsernameLength に収まる seed の長さ。
var maxSeedLength = MaxUsernameLength - len(strconv.Itoa(MaxUsernameAttempts))

const fallbackSeed = "user"

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,30}$`)

// ValidateUsername はユーザー指定のユーザー名の形式を検証する。
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

// UsernameChecker はユーザー名の使用状況を返す。
// repository.UserRepository が満たす。
type UsernameChecker interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// UsernameAllocator は seed, seed1, seed2... の順に未使用のユーザー名を探す。
type UsernameAllocator struct {
	checker     UsernameChecker
	maxAttempts int
}

// NewUsernameAllocator はUsernameAllocatorを生成する。
func NewUsernameAllocator(checker UsernameChecker) *UsernameAllocator {
	return &UsernameAllocator{checker: checker, maxAttempts: MaxUsernameAttempts}
}

// Allocate はseedを正規化し、未使用の最初の候補を返す。
// 候補は seed, seed1, seed2 ... の順で、上限に達した場合は ErrAllocationExhausted を返す。
// 返した名前の予約はしないため、作成時の一意制約違反は呼び出し側で扱う。
func (a *UsernameAllocator) Allocate(ctx context.Context, seed string) (string, error) {
	base := NormalizeSeed(seed)

	for i := 0; i < a.maxAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = base + strconv.Itoa(i)
		}

		exists, err := a.checker.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check username %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", ErrAllocationExhausted
}

// NormalizeSeed はユーザー名の候補元を小文字化し、空白と発音区別符号を除去する。
// 英数字と "_" "." "-" 以外は捨て、空になった場合は "user" を返す。
// 連番の余地を残すため maxSeedLength 文字で切り詰める。
func NormalizeSeed(seed string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, seed)
	if err != nil {
		folded = seed
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}

	out := b.String()
	if len(out) > maxSeedLength {
		out = out[:maxSeedLength]
	}
	if out == "" {
		return fallbackSeed
	}
	return out
}

// EmailLocalPart はメールアドレスの "@" より前を返す。
func EmailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
