package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type registerCmd struct {
	email    string
	name     string
	password string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create a new account and sign in" }
func (*registerCmd) Usage() string {
	return "fundwise register -email <email> -name <display name> -password <password>\n"
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "account email")
	f.StringVar(&c.name, "name", "", "display name")
	f.StringVar(&c.password, "password", "", "password (min 8 characters)")
}

func (c *registerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.email == "" || c.name == "" || c.password == "" {
		fmt.Fprintln(os.Stderr, "email, name, and password are required")
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	user, err := a.provider.Register(ctx, c.email, c.name, c.password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := a.session.Login(ctx, c.email, c.password); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("registered %s (%s)\n", user.DisplayName, user.ID)
	return subcommands.ExitSuccess
}

type loginCmd struct {
	email    string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in and persist the session" }
func (*loginCmd) Usage() string {
	return "fundwise login -email <email> -password <password>\n"
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "account email")
	f.StringVar(&c.password, "password", "", "password")
}

func (c *loginCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if err := a.session.Login(ctx, c.email, c.password); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if user := a.session.CurrentUser(); user != nil {
		fmt.Printf("signed in as %s\n", user.DisplayName)
	} else {
		fmt.Println("signed in")
	}
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string             { return "logout" }
func (*logoutCmd) Synopsis() string         { return "sign out and clear local state" }
func (*logoutCmd) Usage() string            { return "fundwise logout\n" }
func (*logoutCmd) SetFlags(f *flag.FlagSet) {}

func (c *logoutCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if err := a.session.Logout(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println("signed out")
	return subcommands.ExitSuccess
}

type whoamiCmd struct{}

func (*whoamiCmd) Name() string             { return "whoami" }
func (*whoamiCmd) Synopsis() string         { return "print the current identity" }
func (*whoamiCmd) Usage() string            { return "fundwise whoami\n" }
func (*whoamiCmd) SetFlags(f *flag.FlagSet) {}

func (c *whoamiCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	user, err := a.requireUser(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s <%s> (%s)\n", user.DisplayName, user.Email, user.ID)
	return subcommands.ExitSuccess
}
