package clickhouse

import "errors"

var (
	// ErrConnect is returned when the DSN cannot be parsed or the server is unreachable.
	ErrConnect = errors.New("clickhouse connect failed")
	// ErrInsert wraps batch prepare, append and send failures.
	ErrInsert = errors.New("clickhouse insert failed")
	// ErrTable is returned for table names that are not plain identifiers.
	ErrTable = errors.New("invalid clickhouse table name")
	// ErrTimestamp is returned for rows whose ingest_ts cannot be parsed.
	ErrTimestamp = errors.New("invalid ingest timestamp")
)
