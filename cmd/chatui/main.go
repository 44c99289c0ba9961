package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/avitalVissoky/ChatLibrary/internal/app"
	"github.com/avitalVissoky/ChatLibrary/internal/config"
	"github.com/avitalVissoky/ChatLibrary/internal/session"
	"go.uber.org/fx"
)

func main() {
	userFlag := flag.String("user", "", "user id to log in as (skips the login page)")
	configFlag := flag.String("config", "", "config file (default ~/.librarychat/config.toml)")
	flag.Parse()

	if err := config.LoadEnvFile(session.EnvPath()); err != nil {
		fmt.Fprintf(os.Stderr, "error: load env: %v\n", err)
		os.Exit(1)
	}

	user := *userFlag
	if user != "" {
		normalized, err := session.NormalizeUserID(user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		user = normalized
	}

	fxApp := fx.New(
		app.Module(app.Params{User: user, ConfigPath: *configFlag, Binary: "chatui"}),
	)
	if err := fxApp.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fxApp.Run()
}
