package main

import "log"

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	log.Fatal(NewServer(cfg).Start())
}
