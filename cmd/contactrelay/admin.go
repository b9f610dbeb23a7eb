package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Strob0t/contactrelay/internal/adapter/smtp"
	"github.com/Strob0t/contactrelay/internal/app"
	"github.com/Strob0t/contactrelay/internal/config"
	"github.com/Strob0t/contactrelay/internal/domain/contact"
	"github.com/Strob0t/contactrelay/internal/port/mailer"
)

// runAdmin dispatches admin subcommands (render, check-smtp, drivers).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "render":
		return runAdminRender(args[1:])
	case "check-smtp":
		return runAdminCheckSMTP(args[1:])
	case "drivers":
		return runAdminDrivers()
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: contactrelay admin <command> [options]

Commands:
  render       Print the notification email for a sample submission
  check-smtp   Connect and authenticate against the relay without sending
  drivers      List registered mailer drivers
  help         Show this help message

Examples:
  contactrelay admin render --name "Jane Doe" --email jane@example.com --message "Hi"
  contactrelay admin check-smtp --timeout 15s
`)
}

func runAdminRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	name := fs.String("name", "Jane Doe", "submitter name")
	email := fs.String("email", "jane@example.com", "submitter email")
	message := fs.String("message", "Hello there", "submitter message")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	templates, release, err := app.NewTemplates(cfg)
	if err != nil {
		return err
	}
	defer release()

	sub := contact.Submission{Name: *name, Email: *email, Message: *message}
	if err := contact.NewValidator().Check(sub); err != nil {
		return err
	}

	tmpl, err := templates.Load(context.Background(), cfg.Templates.Name)
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}
	fmt.Fprintln(os.Stdout, contact.RenderSubmission(tmpl, sub))
	return nil
}

func runAdminCheckSMTP(args []string) error {
	fs := flag.NewFlagSet("check-smtp", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 30*time.Second, "overall time limit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := app.ApplySecrets(cfg); err != nil {
		return err
	}

	if cfg.SMTP.Username != "" && cfg.SMTP.Password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) { //nolint:gosec // G115: fd fits in int
			return errors.New("smtp password not configured and stdin is not a terminal")
		}
		cfg.SMTP.Password, err = promptPassword(fmt.Sprintf("SMTP password for %s: ", cfg.SMTP.Username))
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	m, err := smtp.New(smtp.Config{
		Host:           cfg.SMTP.Host,
		Port:           cfg.SMTP.Port,
		Username:       cfg.SMTP.Username,
		Password:       cfg.SMTP.Password,
		TLS:            cfg.SMTP.TLS,
		DialTimeout:    cfg.SMTP.DialTimeout,
		CommandTimeout: cfg.SMTP.CommandTimeout,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := m.Verify(ctx); err != nil {
		return fmt.Errorf("check smtp: %w", err)
	}

	fmt.Fprintf(os.Stderr, "SMTP relay %s:%d accepted the connection\n", cfg.SMTP.Host, cfg.SMTP.Port)
	return nil
}

func runAdminDrivers() error {
	for _, d := range mailer.Available() {
		fmt.Fprintln(os.Stdout, d)
	}
	return nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:gosec // G115: fd fits in int
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
