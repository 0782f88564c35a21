// Package auth validates Telegram Mini App launch parameters.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/SasLord/tma/internal/domain"
	"github.com/SasLord/tma/internal/xerrors"
)

// testHashSentinel used to bypass verification unconditionally in the
// original handlers. It is only honored behind an explicit flag now.
const testHashSentinel = "mock_hash_for_testing"

type Verifier struct {
	token         string
	allowTestHash bool
}

func NewVerifier(botToken string, allowTestHash bool) *Verifier {
	return &Verifier{token: botToken, allowTestHash: allowTestHash}
}

// Verify checks the signature of a query-string-encoded launch blob
// against the bot token, per Telegram's WebApp data-integrity scheme:
// sorted key=value lines signed with HMAC-SHA256 under a secret derived
// as HMAC-SHA256(key="WebAppData", message=botToken). Parse failures
// fail closed.
func (v *Verifier) Verify(initData string) error {
	pairs, hash, err := parseInitData(initData)
	if err != nil {
		return err
	}

	if v.allowTestHash && hash == testHashSentinel {
		return nil
	}

	expected := signature(pairs, v.token)
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return xerrors.ErrInvalidSignature
	}
	return nil
}

// User extracts the embedded "user" JSON field from launch data. The
// blob is not verified here; callers decide whether Verify is required.
func User(initData string) (*domain.TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnknownUser, err)
	}

	raw := values.Get("user")
	if raw == "" {
		return nil, xerrors.ErrUnknownUser
	}

	var user domain.TelegramUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnknownUser, err)
	}
	if user.ID == 0 {
		return nil, xerrors.ErrUnknownUser
	}
	return &user, nil
}

func parseInitData(initData string) (map[string]string, string, error) {
	initData = strings.TrimSpace(initData)
	if initData == "" {
		return nil, "", xerrors.ErrMissingHash
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", xerrors.ErrInvalidSignature, err)
	}

	pairs := make(map[string]string, len(values))
	for key, value := range values {
		if len(value) > 0 {
			pairs[key] = value[0]
		}
	}

	hash, ok := pairs["hash"]
	if !ok || hash == "" {
		return nil, "", xerrors.ErrMissingHash
	}
	delete(pairs, "hash")

	return pairs, hash, nil
}

// signature computes the lowercase hex check hash over every field
// except "hash" itself.
func signature(pairs map[string]string, botToken string) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+pairs[k])
	}
	dataCheckString := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	secretKey := secret.Sum(nil)

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(dataCheckString))
	return hex.EncodeToString(mac.Sum(nil))
}
