package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/appaltosmart/webclient/core/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	sessSvc *session.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  checklogin -email EMAIL - verify marketplace credentials. The password will be prompted next.")
	fmt.Println("  purgesessions - remove all expired web sessions")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	checkLoginCmd := flag.NewFlagSet("checklogin", flag.ExitOnError)
	checkLoginEmail := checkLoginCmd.String("email", "", "The account's email. The password will be prompted next.")

	switch args[1] {
	case "checklogin":
		if err := checkLoginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *checkLoginEmail == "" {
			checkLoginCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			checkLoginCmd.Usage()
			return errHelp
		}
		return cli.checkLogin(*checkLoginEmail, string(pwd))
	case "purgesessions":
		return cli.purgeSessions()
	default:
		cli.printUsage()
		return errHelp
	}
}

// checkLogin signs in against the marketplace and immediately invalidates the
// created session; useful to verify an account without touching a browser.
func (cli *commandLine) checkLogin(email, password string) error {
	ctx := context.Background()
	sess, _, err := cli.sessSvc.Login(ctx, email, password)
	if err != nil {
		return err
	}
	defer func() { _ = cli.sessSvc.Invalidate(ctx, sess.ID) }()

	fmt.Printf("OK: %s (%s, role %s)\n", sess.User.Name, sess.User.Email, sess.User.Role)
	return nil
}

func (cli *commandLine) purgeSessions() error {
	n, err := cli.sessSvc.PurgeExpired(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("purged %d expired session(s)\n", n)
	return nil
}
