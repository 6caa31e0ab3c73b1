// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb holds types to fake an in-memory DB, for exercising
// rundb without a real MySQL server. rundb also writes (INSERT/UPDATE),
// unlike conddb's read-only queries, so Stmt.Exec here records the call
// and returns a configurable driver.Result instead of panicking.
package fakedb // import "github.com/go-lpc/wavedaq/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

var query struct {
	mu      sync.Mutex
	rows    Rows
	execs   []Exec
	lastID  int64
	nRows   int64
	execErr error
}

// Exec records one Exec call's query text and bound arguments.
type Exec struct {
	Query string
	Args  []driver.Value
}

// Run configures the fake driver's canned query rows for the duration of
// f and returns the Exec calls recorded during f.
func Run(ctx context.Context, rows Rows, f func(ctx context.Context) error) ([]Exec, error) {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = rows
	query.execs = nil

	err := f(ctx)
	return query.execs, err
}

// SetExecResult configures the (lastInsertId, rowsAffected, error) every
// subsequent Exec call returns, until SetExecResult is called again.
func SetExecResult(lastID, nRows int64, err error) {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.lastID, query.nRows, query.execErr = lastID, nRows, err
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

// Open returns a new connection to the database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(q string) (driver.Stmt, error) {
	return &Stmt{query: q}, nil
}

func (c *Conn) Close() error { return nil }

func (c *Conn) Begin() (driver.Tx, error) {
	panic("not implemented")
}

type Stmt struct {
	query string
}

func (stmt *Stmt) Close() error { return nil }

func (stmt *Stmt) NumInput() int { return -1 }

// Exec records the call and returns the configured fake result. It runs
// inside Run's f, which already holds query.mu.
func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	query.execs = append(query.execs, Exec{Query: stmt.query, Args: args})
	if query.execErr != nil {
		return nil, query.execErr
	}
	return fakeResult{lastID: query.lastID, nRows: query.nRows}, nil
}

// Query executes a query that may return rows, such as a SELECT.
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return &query.rows, nil
}

type StmtQueryContext struct{}

func (stmt *StmtQueryContext) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	panic("not implemented")
}

type fakeResult struct {
	lastID, nRows int64
}

func (r fakeResult) LastInsertId() (int64, error) { return r.lastID, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.nRows, nil }

type Rows struct {
	Names  []string
	Values [][]driver.Value
}

// Columns returns the names of the columns.
func (rows *Rows) Columns() []string {
	return rows.Names
}

func (rows *Rows) Close() error { return nil }

// Next populates the next row of data into dest.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver           = (*Driver)(nil)
	_ driver.Conn             = (*Conn)(nil)
	_ driver.Stmt             = (*Stmt)(nil)
	_ driver.StmtQueryContext = (*StmtQueryContext)(nil)
	_ driver.Rows             = (*Rows)(nil)
	_ driver.Result           = fakeResult{}
)
