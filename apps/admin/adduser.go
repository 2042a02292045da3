package main

import (
	"context"
	"fmt"

	"github.com/wordwise/backend/core/account"
)

// addUser registers a new account after running the same validation as the API.
func (cli *commandLine) addUser(na account.NewAccount) error {
	na.Clean()
	if err := cli.validate.Struct(na); err != nil {
		return err
	}
	acc, err := cli.accSvc.Register(context.Background(), na)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s %s\n", acc.Role(), acc.Base().ID)
	return nil
}
