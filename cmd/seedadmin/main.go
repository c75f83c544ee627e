// Command seedadmin creates or promotes the administrator account. It is the
// only way, besides startup seeding, to obtain the admin role.
//
// The email comes from -admin-email (or the config file); the password from
// -admin-password or, when that is empty, an interactive prompt.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/internal/server/auth"
	"github.com/docgate/docgate/internal/server/config"
	"github.com/docgate/docgate/internal/server/repositories/repomanager"
	"github.com/docgate/docgate/internal/server/services"
	"golang.org/x/term"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.Debug)

	password := cfg.DefaultAdminPassword
	if password == "" {
		var err error
		password, err = promptPassword(os.Stdin, os.Stderr)
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	db, err := repomanager.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations error: %v", err)
	}

	svc := services.NewAccountService(db, rm, auth.NewTokenCodec(cfg.SecretKey), cfg, logger)
	account, err := svc.SeedAdmin(ctx, cfg.DefaultAdminEmail, password)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	fmt.Fprintf(os.Stdout, "administrator %s ready (id %s)\n", account.Email, account.ID)
}

var errPasswordMismatch = errors.New("passwords do not match")

// promptPassword asks for the password twice. On a terminal the input is not
// echoed; otherwise one line per answer is read from in.
func promptPassword(in *os.File, out io.Writer) (string, error) {
	var read func() (string, error)

	if term.IsTerminal(int(in.Fd())) {
		read = func() (string, error) {
			b, err := term.ReadPassword(int(in.Fd()))
			fmt.Fprintln(out)
			return string(b), err
		}
	} else {
		r := bufio.NewReader(in)
		read = func() (string, error) {
			line, err := r.ReadString('\n')
			if err != nil && !(errors.Is(err, io.EOF) && line != "") {
				return "", err
			}
			return strings.TrimRight(line, "\r\n"), nil
		}
	}

	fmt.Fprint(out, "Administrator password: ")
	first, err := read()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(out, "Repeat password: ")
	second, err := read()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if first != second {
		return "", errPasswordMismatch
	}
	return first, nil
}
