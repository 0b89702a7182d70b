package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const SecretKeyBytesLen = 32

// Print lines ready to be pasted into '.env'
func main() {
	if err := writeSecrets(os.Stdout, rand.Reader); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}
}

func writeSecrets(w io.Writer, random io.Reader) error {
	access, err := secret(random)
	if err != nil {
		return err
	}

	refresh, err := secret(random)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "JWT_SECRET_KEY=%s\nJWT_REFRESH_SECRET_KEY=%s\n", access, refresh)
	return err
}

func secret(random io.Reader) (string, error) {
	b := make([]byte, SecretKeyBytesLen)
	if _, err := io.ReadFull(random, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
