// Package main generates a development Certificate Authority and a gateway
// server certificate signed by it, writing them under the "certs" directory.
//
// Serve the gateway with --tls-cert certs/server.crt --tls-key
// certs/server.key and point clients at certs/ca.crt.
package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/JobBoard/internal/certgen"
	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
)

type options struct {
	dir      string
	hosts    []string
	validity time.Duration
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("certgen", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.dir, "dir", "certs", "output directory")
	fs.StringSliceVar(&opts.hosts, "hosts", []string{"localhost", "127.0.0.1"}, "server certificate host names and IPs")
	fs.DurationVar(&opts.validity, "validity", 365*24*time.Hour, "certificate validity")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func run(opts options) error {
	b, err := certgen.NewBundle(opts.hosts, opts.validity)
	if err != nil {
		return err
	}
	return certgen.WriteBundle(opts.dir, b)
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		pterm.Error.Printf("certificate generation failed: %v\n", err)
		os.Exit(1)
	}
	pterm.Success.Printf("Certificates for %s generated into ./%s\n", strings.Join(opts.hosts, ", "), opts.dir)
}
