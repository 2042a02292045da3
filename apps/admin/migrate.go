package main

import (
	"fmt"
	"strconv"
)

func (cli *commandLine) migrate(args []string) (err error) {
	m, err := cli.newMigrator()
	if err != nil {
		return err
	}
	defer func() {
		if cErr := m.Close(); err == nil {
			err = cErr
		}
	}()

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("force must be of form: migrate force VERSION")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("version must be a number (got '%s')", args[1])
		}
		return m.Force(version)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "version: %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("%q: no such command", args[0])
	}
}
