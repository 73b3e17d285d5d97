// Package main generates a development Certificate Authority (CA) and a
// server certificate signed by it, writing them under the "certs" directory.
// An existing CA in that directory is reused so clients that already trust
// it keep working.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/authkeeper/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server host names and IPs")
	flag.Parse()

	if err := run(*dir, strings.Split(*hosts, ",")); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Certificates generated into %s\n", *dir)
}

// run writes ca.crt/ca.key (unless present) and server.crt/server.key into dir.
func run(dir string, hosts []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	caCertPath := filepath.Join(dir, "ca.crt")
	caKeyPath := filepath.Join(dir, "ca.key")

	caCert, caKey, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	if errors.Is(err, fs.ErrNotExist) {
		ca, genErr := certgen.GenerateCA("authkeeper dev CA")
		if genErr != nil {
			return genErr
		}
		if err := ca.WriteFiles(caCertPath, caKeyPath); err != nil {
			return err
		}
		caCert, caKey, err = ca.Cert, ca.Key, nil
	}
	if err != nil {
		return err
	}

	var cleaned []string
	for _, h := range hosts {
		if h = strings.TrimSpace(h); h != "" {
			cleaned = append(cleaned, h)
		}
	}
	srv, err := certgen.GenerateServerCertificate(cleaned, caCert, caKey)
	if err != nil {
		return err
	}
	return srv.WriteFiles(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
}
