package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"wykonczymy/internal/authz"
	"wykonczymy/internal/services"
)

type bootstrapAdminCmd struct {
	email     string
	firstName string
	lastName  string
}

func (*bootstrapAdminCmd) Name() string { return "bootstrap-admin" }
func (*bootstrapAdminCmd) Synopsis() string {
	return "create the first ADMIN account on an empty database"
}
func (*bootstrapAdminCmd) Usage() string {
	return `kasactl bootstrap-admin -email <email> [-first <name>] [-last <name>]

  Creates an ADMIN user. The password is read from KASACTL_ADMIN_PASSWORD.
  Refuses to run once an administrator exists.
`
}

func (c *bootstrapAdminCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Email of the administrator.")
	f.StringVar(&c.firstName, "first", "", "First name.")
	f.StringVar(&c.lastName, "last", "", "Last name.")
}

func (c *bootstrapAdminCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	password := os.Getenv("KASACTL_ADMIN_PASSWORD")
	if c.email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "-email and KASACTL_ADMIN_PASSWORD are required")
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	user, err := a.users.BootstrapAdmin(ctx, services.CreateUserInput{
		Email:     c.email,
		Password:  password,
		FirstName: c.firstName,
		LastName:  c.lastName,
		Role:      authz.RoleAdmin,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return subcommands.ExitSuccess
}
