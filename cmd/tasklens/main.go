package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gi8lino/tasklens/internal/app"
)

var Version = "dev"

func main() {
	if err := app.Run(context.Background(), Version, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "tasklens: %v\n", err) // nolint:errcheck
		os.Exit(1)
	}
}
