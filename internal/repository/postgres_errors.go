package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgreSQLの一意制約名とキー名の対応。
var pgConstraintKeys = map[string]string{
	"users_username_lower_key":            KeyUsername,
	"users_email_key":                     KeyEmail,
	"user_identities_provider_subject_key": KeyExternalID,
}

// translatePgError は一意制約違反（SQLSTATE 23505）を *DuplicateKeyError に変換する。
// それ以外のエラーはそのまま返す。
func translatePgError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		key, ok := pgConstraintKeys[pqErr.Constraint]
		if !ok {
			key = pqErr.Constraint
		}
		return &DuplicateKeyError{Key: key, Err: err}
	}
	return err
}

// validUUID はIDがUUID形式かどうかを返す。
// UUID以外を渡すとPostgreSQLが型エラーを返すため、検索前に未検出として扱う。
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
