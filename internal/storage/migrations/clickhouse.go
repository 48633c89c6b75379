package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "solana-token-risk/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the target database if needed and applies all
// embedded SQL files. Statements use IF NOT EXISTS, so reruns are no-ops.
// Returns a connection to the target database for reuse.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	adminConn, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	if err := adminConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		_ = adminConn.Close()
		return nil, fmt.Errorf("create database %s: %w", dbName, err)
	}
	if err := adminConn.Close(); err != nil {
		return nil, fmt.Errorf("close admin connection: %w", err)
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	files, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	for _, m := range files {
		stmts, err := splitStatements(m.SQL)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("parse migration %s: %w", m.Name, err)
		}
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", m.Name, err)
			}
		}
	}

	return conn, nil
}

// splitStatements splits a ClickHouse script on semicolons, since the native
// driver executes one statement per call. Full-line "--" comments are dropped.
// A semicolon inside a single-quoted literal is rejected rather than split.
func splitStatements(script string) ([]string, error) {
	var lines []string
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		lines = append(lines, line)
	}
	body := strings.Join(lines, "\n")

	inString := false
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\'':
			if inString && i+1 < len(body) && body[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return nil, fmt.Errorf("semicolon inside string literal at offset %d", i)
			}
		}
	}

	var stmts []string
	for _, part := range strings.Split(body, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
