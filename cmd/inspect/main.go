// Command inspect prints the screening audit ledger as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/ainergiz/oai-realtime/internal/audit"
)

func main() {
	var (
		dbPath  = flag.String("db", "screening-audit.db", "path to the audit database")
		session = flag.String("session", "", "print the full event trail of one session")
		limit   = flag.Int("limit", 20, "number of sessions to list")
		color   = flag.Bool("color", true, "colorize output")
	)
	flag.Parse()

	if err := run(context.Background(), os.Stdout, *dbPath, *session, *limit, *color); err != nil {
		fmt.Fprintln(os.Stderr, "inspect:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, dbPath, sessionID string, limit int, color bool) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	store, err := audit.Open(dbPath, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	var v any
	if sessionID != "" {
		d, err := store.SessionDetail(ctx, sessionID)
		if errors.Is(err, audit.ErrNotFound) {
			return fmt.Errorf("session %s not found", sessionID)
		}
		if err != nil {
			return err
		}
		v = d
	} else {
		list, err := store.Sessions(ctx, limit)
		if err != nil {
			return err
		}
		v = list
	}
	return render(w, v, color)
}

func render(w io.Writer, v any, color bool) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	out := pretty.Pretty(raw)
	if color {
		out = pretty.Color(out, nil)
	}
	_, err = w.Write(out)
	return err
}
