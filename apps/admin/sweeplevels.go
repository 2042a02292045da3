package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) sweepLevels() error {
	n, err := cli.prgSvc.SweepLevels(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d student(s) promoted\n", n)
	return nil
}
