// portalctl administers the dormitory portal's tenant directory and sessions: schema
// migrations, adding and (de)activating tenants, and revoking sessions.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jrsteele09/dormportal/auth"
	"github.com/jrsteele09/dormportal/identity"
	"github.com/jrsteele09/dormportal/internal/config"
	"github.com/jrsteele09/dormportal/internal/logging"
	"github.com/jrsteele09/dormportal/internal/stores"
	"github.com/jrsteele09/dormportal/tenants"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(out)
		return nil
	}

	cfg := config.New()
	logging.Setup(cfg.GetEnv(), cfg.GetLogLevel())

	st, err := stores.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	verifier, err := identity.FromConfig(cfg)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, st, verifier, in, out)
	if err != nil {
		return err
	}
	return a.dispatch(ctx, args)
}

type app struct {
	stores   *stores.Stores
	repos    auth.Repos
	verifier identity.Verifier
	hasher   *tenants.Hasher
	login    *auth.LoginService
	in       *bufio.Reader
	out      io.Writer
}

func newApp(cfg config.Config, st *stores.Stores, verifier identity.Verifier, in io.Reader, out io.Writer, options ...auth.Option) (*app, error) {
	hasher := tenants.NewHasher(cfg.GetBcryptCost())
	repos := auth.Repos{Tenants: st.Tenants, Sessions: st.Sessions}
	options = append([]auth.Option{auth.WithHasher(hasher)}, options...)

	issuer, err := auth.NewIssuer(st.Sessions, cfg.GetSessionTTL(), options...)
	if err != nil {
		return nil, err
	}
	login, err := auth.NewLoginService(repos, verifier, issuer, options...)
	if err != nil {
		return nil, err
	}
	return &app{
		stores:   st,
		repos:    repos,
		verifier: verifier,
		hasher:   hasher,
		login:    login,
		in:       bufio.NewReader(in),
		out:      out,
	}, nil
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"migrate":        {"apply database migrations", runMigrate},
	"add-tenant":     {"register a tenant", runAddTenant},
	"set-password":   {"set a tenant's password (read from stdin)", runSetPassword},
	"deactivate":     {"deactivate a tenant and revoke their sessions", runDeactivate},
	"activate":       {"reactivate a tenant", runActivate},
	"revoke":         {"revoke every session a tenant holds", runRevoke},
	"sessions":       {"list a tenant's live sessions", runSessions},
	"prune-sessions": {"delete expired sessions", runPrune},
	"list":           {"list tenants", runList},
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	cmd, ok := commands[args[0]]
	if !ok {
		printUsage(a.out)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(ctx, a, args[1:])
}

func printUsage(out io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "usage: portalctl <command> [flags]")
	fmt.Fprintln(out)
	for _, name := range names {
		fmt.Fprintf(out, "  %-16s %s\n", name, commands[name].summary)
	}
}

// readSecret reads one line from stdin so passwords never appear in argv.
func (a *app) readSecret() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", fmt.Errorf("empty password on stdin")
	}
	return secret, nil
}

func (a *app) tenantByEmail(ctx context.Context, email string) (*tenants.Tenant, error) {
	if email == "" {
		return nil, fmt.Errorf("--email is required")
	}
	t, err := a.repos.Tenants.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("tenant %s: %w", email, err)
	}
	return t, nil
}
