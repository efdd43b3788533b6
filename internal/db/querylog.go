package db

import (
	"context"
	"database/sql/driver"
	"fmt"
	"log/slog"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// queryLogConnector implements driver.Connector by opening the sqlite3 driver
// and wrapping every connection so all SQL and args get logged at debug level.
type queryLogConnector struct {
	dsn    string
	logger *slog.Logger
}

// NewQueryLogConnector returns a driver.Connector that logs every statement
// through the given logger. Use sql.OpenDB(connector) to obtain the *sql.DB.
// If logger is nil, slog.Default() is used.
func NewQueryLogConnector(dsn string, logger *slog.Logger) driver.Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &queryLogConnector{dsn: dsn, logger: logger}
}

func (c *queryLogConnector) Driver() driver.Driver {
	return &queryLogDriver{}
}

func (c *queryLogConnector) Connect(ctx context.Context) (driver.Conn, error) {
	underlying := &sqlite3.SQLiteDriver{}
	conn, err := underlying.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &queryLogConn{conn: conn, logger: c.logger}, nil
}

// queryLogDriver satisfies Connector.Driver(); opening is done via OpenDB(connector).
type queryLogDriver struct{}

func (d *queryLogDriver) Open(name string) (driver.Conn, error) {
	return nil, fmt.Errorf("sqlite3-querylog: use sql.OpenDB(NewQueryLogConnector(...)) instead of sql.Open")
}

// queryLogConn wraps driver.Conn to hand out logging statements.
type queryLogConn struct {
	conn   driver.Conn
	logger *slog.Logger
}

func (c *queryLogConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &queryLogStmt{stmt: stmt, query: query, logger: c.logger}, nil
}

func (c *queryLogConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if prep, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err := prep.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		return &queryLogStmt{stmt: stmt, query: query, logger: c.logger}, nil
	}
	return c.Prepare(query)
}

func (c *queryLogConn) Close() error {
	return c.conn.Close()
}

func (c *queryLogConn) Begin() (driver.Tx, error) {
	//nolint:staticcheck // SA1019 – required when underlying conn does not implement ConnBeginTx
	return c.conn.Begin()
}

func (c *queryLogConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if beginTx, ok := c.conn.(driver.ConnBeginTx); ok {
		return beginTx.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019 – fallback when underlying conn does not implement ConnBeginTx
	return c.conn.Begin()
}

// queryLogStmt wraps driver.Stmt to log Exec/Query and their args.
type queryLogStmt struct {
	stmt   driver.Stmt
	query  string
	logger *slog.Logger
}

func (s *queryLogStmt) Close() error {
	return s.stmt.Close()
}

func (s *queryLogStmt) NumInput() int {
	return s.stmt.NumInput()
}

func (s *queryLogStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.logger.Debug("sql exec", "query", s.query, "args", args)
	//nolint:staticcheck // SA1019 – driver.Stmt fallback path
	res, err := s.stmt.Exec(args)
	if err != nil {
		s.logger.Debug("sql exec failed", "query", s.query, "error", err)
	}
	return res, err
}

func (s *queryLogStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.logger.Debug("sql query", "query", s.query, "args", args)
	//nolint:staticcheck // SA1019 – driver.Stmt fallback path
	rows, err := s.stmt.Query(args)
	if err != nil {
		s.logger.Debug("sql query failed", "query", s.query, "error", err)
	}
	return rows, err
}

func (s *queryLogStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	s.logger.Debug("sql exec", "query", s.query, "args", namedValues(args))
	if execer, ok := s.stmt.(driver.StmtExecContext); ok {
		res, err := execer.ExecContext(ctx, args)
		if err != nil {
			s.logger.Debug("sql exec failed", "query", s.query, "error", err)
		}
		return res, err
	}
	//nolint:staticcheck // SA1019 – fallback when StmtExecContext is unsupported
	return s.stmt.Exec(plainValues(args))
}

func (s *queryLogStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	s.logger.Debug("sql query", "query", s.query, "args", namedValues(args))
	if queryer, ok := s.stmt.(driver.StmtQueryContext); ok {
		rows, err := queryer.QueryContext(ctx, args)
		if err != nil {
			s.logger.Debug("sql query failed", "query", s.query, "error", err)
		}
		return rows, err
	}
	//nolint:staticcheck // SA1019 – fallback when StmtQueryContext is unsupported
	return s.stmt.Query(plainValues(args))
}

func namedValues(args []driver.NamedValue) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		out = append(out, a.Value)
	}
	return out
}

func plainValues(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, 0, len(args))
	for _, a := range args {
		out = append(out, a.Value)
	}
	return out
}
