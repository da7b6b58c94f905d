//go:build mage

// Package main provides build targets for specgen using Mage.
//
// Usage:
//
//	mage build            Compile specgen and mock-llm to bin/
//	mage test             Run unit tests with the race detector
//	mage testIntegration  Run tests tagged integration (needs SPECGEN_NATS_URL)
//	mage lint             Run go vet and golangci-lint
//	mage cover            Write coverage.out and print the per-func summary
//	mage serve            Build and run the server with the mock LLM
//	mage clean            Remove build artifacts
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo     = "go"
	binaryDir = "bin"
	coverFile = "coverage.out"
)

// binaries maps each output name to its main package.
var binaries = map[string]string{
	"specgen":  "./cmd/specgen",
	"mock-llm": "./cmd/mock-llm",
}

// Build compiles every binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	for name, pkg := range binaries {
		if err := sh.RunV(binGo, "build", "-o", filepath.Join(binaryDir, name), pkg); err != nil {
			return fmt.Errorf("build %s: %w", name, err)
		}
	}
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV(binGo, "test", "-race", "-count=1", "./...")
}

// TestIntegration runs tests behind the integration build tag. Tests that
// need NATS skip unless SPECGEN_NATS_URL is set.
func TestIntegration() error {
	if os.Getenv("SPECGEN_NATS_URL") == "" {
		fmt.Println("SPECGEN_NATS_URL is not set; NATS tests will skip")
	}
	return sh.RunV(binGo, "test", "-tags=integration", "-count=1", "./...")
}

// Lint runs go vet, then golangci-lint.
func Lint() error {
	if err := sh.RunV(binGo, "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Cover writes a coverage profile and prints the function summary.
func Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverFile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverFile)
}

// Serve builds, then runs specgen against an in-memory database with debug
// logging. Point OLLAMA_HOST at a running mock-llm for offline use.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, "specgen"), "serve", "--db", ":memory:", "--log-level", "debug")
}

// Clean removes build artifacts.
func Clean() error {
	for _, p := range []string{binaryDir, coverFile} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return sh.RunV(binGo, "clean")
}
