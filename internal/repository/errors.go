package repository

import (
	"errors"
	"fmt"
)

// ErrDuplicateKey は一意制約違反を表す。
// errors.Is(err, ErrDuplicateKey) で判定する。
var ErrDuplicateKey = errors.New("duplicate key")

// 一意制約の対象
const (
	KeyUsername   = "username"
	KeyEmail      = "email"
	KeyExternalID = "external_id"
)

// DuplicateKeyError はどの一意制約に違反したかを保持する。
type DuplicateKeyError struct {
	Key string
	Err error
}

func (e *DuplicateKeyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("duplicate key on %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("duplicate key on %s", e.Key)
}

// Is はErrDuplicateKeyとの比較を可能にする。
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

// DuplicateKeyOf はerrが一意制約違反であれば対象のキー名を返す。
func DuplicateKeyOf(err error) (string, bool) {
	var dk *DuplicateKeyError
	if errors.As(err, &dk) {
		return dk.Key, true
	}
	return "", false
}
