package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/dormportal/identity"
	"github.com/jrsteele09/dormportal/internal/utils"
	"github.com/jrsteele09/dormportal/sessions"
	"github.com/jrsteele09/dormportal/tenants"
	"github.com/spf13/pflag"
)

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func runMigrate(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("migrate").Parse(args); err != nil {
		return err
	}
	if a.stores.DB == nil {
		fmt.Fprintln(a.out, "no postgres backend configured, nothing to migrate")
		return nil
	}
	if err := a.stores.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "migrations applied")
	return nil
}

func runAddTenant(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("add-tenant")
	email := fs.String("email", "", "tenant email (required)")
	name := fs.String("name", "", "display name")
	role := fs.String("role", string(tenants.RoleResident), "resident, staff or admin")
	phone := fs.String("phone", "", "contact number")
	passwordStdin := fs.Bool("password-stdin", false, "read an initial password from stdin")
	fromProvider := fs.Bool("from-provider", false, "require an account at the identity provider and copy its profile")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tenant, err := tenants.New(*email, *name, tenants.Role(*role))
	if err != nil {
		return err
	}
	if *phone != "" {
		tenant.Phone = utils.Ptr(*phone)
	}

	if *fromProvider {
		profile, err := a.verifier.VerifyEmail(ctx, tenant.Email)
		switch {
		case errors.Is(err, identity.ErrNotFound):
			return fmt.Errorf("%s has no account at the identity provider", tenant.Email)
		case err != nil:
			return err
		}
		if tenant.Name == "" {
			tenant.Name = profile.Name
		}
		if profile.PictureURL != "" {
			tenant.PictureURL = utils.Ptr(profile.PictureURL)
		}
	}

	if *passwordStdin {
		password, err := a.readSecret()
		if err != nil {
			return err
		}
		if tenant.PasswordHash, err = a.hasher.Hash(password); err != nil {
			return err
		}
	}

	if err := a.repos.Tenants.Create(ctx, tenant); err != nil {
		return fmt.Errorf("add %s: %w", tenant.Email, err)
	}
	fmt.Fprintf(a.out, "added %s (%s) id=%s\n", tenant.Email, tenant.Role, tenant.ID)
	return nil
}

func runSetPassword(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("set-password")
	email := fs.String("email", "", "tenant email (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tenant, err := a.tenantByEmail(ctx, *email)
	if err != nil {
		return err
	}
	password, err := a.readSecret()
	if err != nil {
		return err
	}
	hash, err := a.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := a.repos.Tenants.SetPasswordHash(ctx, tenant.ID, hash); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "password updated for %s\n", tenant.Email)
	return nil
}

func runDeactivate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("deactivate")
	email := fs.String("email", "", "tenant email (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tenant, err := a.tenantByEmail(ctx, *email)
	if err != nil {
		return err
	}
	revoked, err := a.login.Deactivate(ctx, tenant.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deactivated %s, revoked %d session(s)\n", tenant.Email, revoked)
	return nil
}

func runActivate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("activate")
	email := fs.String("email", "", "tenant email (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tenant, err := a.tenantByEmail(ctx, *email)
	if err != nil {
		return err
	}
	if err := a.login.Activate(ctx, tenant.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "activated %s\n", tenant.Email)
	return nil
}

func runRevoke(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("revoke")
	email := fs.String("email", "", "tenant email (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tenant, err := a.tenantByEmail(ctx, *email)
	if err != nil {
		return err
	}
	revoked, err := a.login.LogoutAll(ctx, tenant.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "revoked %d session(s) for %s\n", revoked, tenant.Email)
	return nil
}

func runSessions(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("sessions")
	email := fs.String("email", "", "tenant email (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tenant, err := a.tenantByEmail(ctx, *email)
	if err != nil {
		return err
	}
	list, err := a.repos.Sessions.ListByOwner(ctx, tenant.ID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tISSUED\tEXPIRES")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", sessions.Redact(s.Token), s.IssuedAt.Format(time.RFC3339), s.ExpiresAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runPrune(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("prune-sessions").Parse(args); err != nil {
		return err
	}
	n, err := a.login.PruneExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "pruned %d expired session(s)\n", n)
	return nil
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("list")
	offset := fs.Int("offset", 0, "skip this many tenants")
	limit := fs.Int("limit", 50, "maximum tenants to show, 0 for all")
	asJSON := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := a.repos.Tenants.List(ctx, *offset, *limit)
	if err != nil {
		return err
	}

	if *asJSON {
		profiles := make([]tenants.Profile, 0, len(list))
		for _, t := range list {
			profiles = append(profiles, t.Public())
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tNAME\tROLE\tSTATUS\tPHONE\tLAST LOGIN")
	for _, t := range list {
		lastLogin := "-"
		if t.LastLoginAt != nil {
			lastLogin = t.LastLoginAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.Email, t.Name, t.Role, t.Status, utils.Value(t.Phone), lastLogin)
	}
	return w.Flush()
}
