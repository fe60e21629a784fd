package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity id prefixes.
const (
	PrefixExperiment = "exp"
	PrefixSample     = "smp"
	PrefixDataset    = "ds"
	PrefixRun        = "run"
)

// codeAlphabet holds the characters allowed in repository codes.
const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// codeLength is the length of the random part of a generated code.
const codeLength = 12

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "ds-V1StGXR8_Z5jdHi6B-myT")
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
// Use this only when failure should crash the program (e.g., during initialization).
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Code creates a repository code: an upper-case prefix followed by random
// upper-case alphanumerics (e.g., "SMP-4F0Q2ZK9A1BX").
func Code(prefix string) (string, error) {
	s, err := gonanoid.Generate(codeAlphabet, codeLength)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return prefix + "-" + s, nil
}
