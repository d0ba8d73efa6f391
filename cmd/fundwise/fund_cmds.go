package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/fundwise/fundwise/internal/storage"
)

type fundsCmd struct{}

func (*fundsCmd) Name() string             { return "funds" }
func (*fundsCmd) Synopsis() string         { return "list the funds you are a member of" }
func (*fundsCmd) Usage() string            { return "fundwise funds\n" }
func (*fundsCmd) SetFlags(f *flag.FlagSet) {}

func (c *fundsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if !a.store.HasLoadedFunds() {
		_ = a.store.LoadFundsForUser(ctx, user.ID)
	}

	funds := a.store.Funds()
	if len(funds) == 0 {
		fmt.Println("no funds yet; create one with 'fundwise fund-create'")
		return subcommands.ExitSuccess
	}

	for _, fund := range funds {
		_ = a.users.LoadBatch(ctx, fund.Members)
		names := make([]string, 0, len(fund.Members))
		for _, id := range fund.Members {
			names = append(names, a.users.Get(id).DisplayName)
		}
		fmt.Printf("%s  %s  members: %s\n", fund.ID, fund.Name, strings.Join(names, ", "))
	}
	return subcommands.ExitSuccess
}

type fundCreateCmd struct {
	name        string
	description string
}

func (*fundCreateCmd) Name() string     { return "fund-create" }
func (*fundCreateCmd) Synopsis() string { return "create a new shared fund" }
func (*fundCreateCmd) Usage() string {
	return "fundwise fund-create -name <name> [-desc <description>]\n"
}

func (c *fundCreateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "fund name")
	f.StringVar(&c.description, "desc", "", "fund description")
}

func (c *fundCreateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		fmt.Fprintln(os.Stderr, "a fund name is required")
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if _, err := a.requireUser(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fund, ok := a.store.CreateFund(ctx, storage.FundDraft{
		Name:        c.name,
		Description: c.description,
	})
	if !ok {
		return subcommands.ExitFailure
	}
	fmt.Printf("created fund %s (%s)\n", fund.Name, fund.ID)
	return subcommands.ExitSuccess
}

type fundDeleteCmd struct{}

func (*fundDeleteCmd) Name() string             { return "fund-rm" }
func (*fundDeleteCmd) Synopsis() string         { return "delete a fund and its transactions" }
func (*fundDeleteCmd) Usage() string            { return "fundwise fund-rm <fund-id>\n" }
func (*fundDeleteCmd) SetFlags(f *flag.FlagSet) {}

func (c *fundDeleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "a fund id is required")
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if _, err := a.requireUser(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if !a.store.DeleteFund(ctx, f.Arg(0)) {
		return subcommands.ExitFailure
	}
	fmt.Println("fund deleted")
	return subcommands.ExitSuccess
}

type inviteCmd struct {
	fundID string
	email  string
}

func (*inviteCmd) Name() string     { return "invite" }
func (*inviteCmd) Synopsis() string { return "add a registered user to a fund by email" }
func (*inviteCmd) Usage() string {
	return "fundwise invite -fund <fund-id> -email <email>\n"
}

func (c *inviteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fundID, "fund", "", "fund id")
	f.StringVar(&c.email, "email", "", "email of the user to add")
}

func (c *inviteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.fundID == "" || c.email == "" {
		fmt.Fprintln(os.Stderr, "fund and email are required")
		return subcommands.ExitUsageError
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if _, err := a.requireUser(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if !a.store.AddMemberByEmail(ctx, c.fundID, c.email) {
		return subcommands.ExitFailure
	}
	fmt.Println("member added")
	return subcommands.ExitSuccess
}
