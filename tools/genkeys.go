// genkeys writes a fresh ledger signing key pair.
//
//	go run ./tools [dir]
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"dagtemplate/internal/security"
)

func main() {
	dir := "./keys"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	kp, err := security.GenerateKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen error: %v\n", err)
		os.Exit(2)
	}
	if err := kp.Save(dir); err != nil {
		fmt.Fprintf(os.Stderr, "save error: %v\n", err)
		os.Exit(2)
	}

	fmt.Println("# ======= Ed25519 Ledger Keypair (hex) =======")
	fmt.Println()
	fmt.Println("PUBLIC_KEY_HEX:")
	fmt.Println(kp.PublicHex())
	fmt.Println()
	fmt.Println("Written to", filepath.Join(dir, security.PublicKeyFile), "and", filepath.Join(dir, security.PrivateKeyFile))
	fmt.Println("# ============================================")
}
