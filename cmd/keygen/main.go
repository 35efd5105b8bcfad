// Command keygen creates a secp256k1 key pair for a StarkBank project. The
// public key is registered in the StarkBank dashboard; the private key signs
// every request.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coachpo/starkbank/pkg/key"
)

func main() {
	dir := flag.String("dir", "keys", "Directory to write privateKey.pem and publicKey.pem into (empty prints to stdout)")
	flag.Parse()

	privatePEM, publicPEM, err := key.Create(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *dir == "" {
		fmt.Print(privatePEM)
		fmt.Print(publicPEM)
		return
	}
	fmt.Printf("private key: %s\n", filepath.Join(*dir, "privateKey.pem"))
	fmt.Printf("public key:  %s\n", filepath.Join(*dir, "publicKey.pem"))
}
