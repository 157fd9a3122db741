// Command receipt-verifier checks a base64-encoded COSE_Sign1
// settlement receipt against the auction server's public key and prints
// the embedded settlement.
//
// Usage:
//
//	receipt-verifier -key server-pub.pem -receipt receipt.b64
package main

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/epochmint/epochauction/receipt"
)

func loadPublicKey(path string) (*ecdsa.PublicKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecKey, nil
}

func main() {
	keyPath := flag.String("key", "", "path to the server's public key (PEM)")
	receiptPath := flag.String("receipt", "", "path to the base64-encoded receipt")
	flag.Parse()

	if *keyPath == "" || *receiptPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	key, err := loadPublicKey(*keyPath)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	encoded, err := os.ReadFile(*receiptPath)
	if err != nil {
		log.Fatalf("ERROR: read receipt: %v", err)
	}
	signed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(encoded)))
	if err != nil {
		log.Fatalf("ERROR: decode receipt: %v", err)
	}

	settlement, err := receipt.Verify(signed, key)
	if err != nil {
		log.Fatalf("ERROR: receipt verification failed: %v", err)
	}

	out, err := json.MarshalIndent(settlement, "", "  ")
	if err != nil {
		log.Fatalf("ERROR: encode settlement: %v", err)
	}
	fmt.Println(string(out))
	log.Printf("INFO: Receipt verified: epoch %d settled %d to %s",
		settlement.Epoch, settlement.Amount, settlement.Winner)
}
