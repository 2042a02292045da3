package main

import (
	"context"

	"github.com/wordwise/backend/core/account"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	acc, err := cli.accSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	idt := acc.Base()
	pc := account.PasswordChange{
		Email:           idt.Email,
		FirstName:       idt.FirstName,
		LastName:        idt.LastName,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err = cli.validate.Struct(pc); err != nil {
		return err
	}
	_, err = cli.accSvc.SetPassword(ctx, acc, pwd)
	return err
}
