package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/edgeopslabs/appkit/pkg/cli"

	_ "github.com/edgeopslabs/appkit/pkg/apps/basic"
	_ "github.com/edgeopslabs/appkit/pkg/apps/custommcp"
	_ "github.com/edgeopslabs/appkit/pkg/apps/kubernetes"
	_ "github.com/edgeopslabs/appkit/pkg/apps/prometheus"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
