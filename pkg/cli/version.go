package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the nodectl version",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("nodectl %s\n", version)
			return nil
		},
	}
}
