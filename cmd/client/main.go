// Package main is the command-line client of the authentication server.
//
// Usage:
//
//	client [flags] register|login|status|logout|2fa-setup|2fa-verify <code>|2fa-reset
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/atinyakov/authkeeper/internal/client/api"
)

var (
	version   string
	buildDate string
)

// promptPassword is a test seam for api.PromptPassword.
var promptPassword = api.PromptPassword

const usage = "commands: register | login | status | logout | 2fa-setup | 2fa-verify <code> | 2fa-reset"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".authkeeper-session.json"
	}
	return filepath.Join(home, ".authkeeper-session.json")
}

// run parses args and executes a single command.
func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(stdout)
	var (
		baseURL     = fs.String("url", "http://localhost:7002", "server base URL")
		caFile      = fs.String("ca", "", "path to CA cert for a self-signed server")
		sessionFile = fs.String("session", defaultSessionFile(), "file holding the session cookie")
		username    = fs.String("u", "", "username for register and login")
		qrFile      = fs.String("qr", "", "write the 2FA QR code PNG to this file")
		timeout     = fs.Duration("timeout", 10*time.Second, "request timeout")
		showVer     = fs.Bool("version", false, "show build version and date")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVer {
		fmt.Fprintf(stdout, "authkeeper client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return nil
	}
	if fs.NArg() == 0 {
		return errors.New(usage)
	}

	client, err := api.New(api.Options{
		BaseURL:     *baseURL,
		CAPath:      *caFile,
		SessionFile: *sessionFile,
		Timeout:     *timeout,
	})
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch cmd := fs.Arg(0); cmd {
	case "register", "login":
		if *username == "" {
			return errors.New("please provide -u=username")
		}
		password, err := promptPassword(stdout, stdin, "Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if cmd == "register" {
			msg, err := client.Register(ctx, *username, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, msg)
			return nil
		}
		u, err := client.Login(ctx, *username, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Logged in as %s (2FA enabled: %t)\n", u.Username, u.MFAEnabled)
	case "status":
		u, err := client.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Logged in as %s (2FA enabled: %t)\n", u.Username, u.MFAEnabled)
	case "logout":
		if err := client.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Logged out")
	case "2fa-setup":
		setup, err := client.SetupMFA(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Secret: %s\n", setup.Secret)
		if *qrFile != "" {
			png, err := setup.QRCodePNG()
			if err != nil {
				return err
			}
			if err := os.WriteFile(*qrFile, png, 0o600); err != nil {
				return fmt.Errorf("write qr code: %w", err)
			}
			fmt.Fprintf(stdout, "QR code written to %s\n", *qrFile)
		}
		fmt.Fprintln(stdout, "Add the secret to your authenticator app, then run 2fa-verify <code>")
	case "2fa-verify":
		if fs.NArg() < 2 {
			return errors.New("usage: 2fa-verify <code>")
		}
		if err := client.VerifyMFA(ctx, fs.Arg(1)); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "2FA enabled")
	case "2fa-reset":
		if err := client.ResetMFA(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "2FA disabled")
	default:
		return fmt.Errorf("unknown command %q; %s", cmd, usage)
	}
	return nil
}
