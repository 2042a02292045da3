package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/wordwise/backend/core/account"
	"github.com/wordwise/backend/core/progress"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type (
	migrator interface {
		Up() error
		Down() error
		Force(version int) error
		Version() (version uint, dirty bool, err error)
		Close() error
	}

	commandLine struct {
		out         io.Writer
		accSvc      *account.Service
		prgSvc      *progress.Service
		validate    *validator.Validate
		newMigrator func() (migrator, error)
	}
)

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|down|force VERSION|version - manage the database schema")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -role user|teacher -first NAME -last NAME - create an account")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset an account's password")
	fmt.Fprintln(cli.out, "  sweeplevels - re-evaluate the level of every student")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserEmail := addUserCmd.String("email", "", "The account's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", string(account.RoleStudent), "user (student) or teacher")
	addUserFirst := addUserCmd.String("first", "", "First name")
	addUserLast := addUserCmd.String("last", "", "Last name")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserFirst == "" || *addUserLast == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(account.NewAccount{
			Email:           *addUserEmail,
			FirstName:       *addUserFirst,
			LastName:        *addUserLast,
			Password:        pwd,
			PasswordConfirm: pwd,
			Role:            account.Role(*addUserRole),
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "sweeplevels":
		return cli.sweepLevels()

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
