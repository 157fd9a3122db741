package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/epochmint/epochauction/core"
	"github.com/epochmint/epochauction/engine"
	"github.com/epochmint/epochauction/receipt"
	"github.com/epochmint/epochauction/registry"
	"github.com/epochmint/epochauction/store"
)

// Server accepts wire requests and dispatches them to the engine.
type Server struct {
	cfg    *Config
	engine *engine.Engine
	signer *receipt.Signer
	store  *store.Store
}

func NewServer(cfg *Config) *Server {
	return &Server{cfg: cfg}
}

// loadOrCreateSigner reads the receipt signing key, generating and
// persisting a fresh one on first start.
func loadOrCreateSigner(path string) (*receipt.Signer, error) {
	pemBytes, err := os.ReadFile(path)
	if err == nil {
		return receipt.LoadSigner(pemBytes)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read receipt key: %w", err)
	}

	signer, err := receipt.NewSigner()
	if err != nil {
		return nil, err
	}
	keyPEM, err := signer.PrivateKeyPEM()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, keyPEM, 0600); err != nil {
		return nil, fmt.Errorf("write receipt key: %w", err)
	}
	log.Printf("INFO: Generated new receipt signing key at %s", path)
	return signer, nil
}

func (s *Server) listen() (net.Listener, error) {
	if s.cfg.UseVsock {
		log.Printf("INFO: Listening on vsock port %d", s.cfg.VsockPort)
		return vsock.Listen(s.cfg.VsockPort, nil)
	}
	log.Printf("INFO: Listening on %s", s.cfg.ListenAddr)
	return net.Listen("tcp", s.cfg.ListenAddr)
}

func (s *Server) Start() error {
	st, err := store.Open(s.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	s.store = st
	log.Printf("INFO: Store opened at %s", s.cfg.DBPath)

	signer, err := loadOrCreateSigner(s.cfg.ReceiptKeyPath)
	if err != nil {
		return fmt.Errorf("initialize receipt signer: %w", err)
	}
	s.signer = signer

	payees, err := s.cfg.PayeeTable()
	if err != nil {
		return err
	}

	oracle := &core.ClockOracle{
		Genesis:  time.Unix(s.cfg.GenesisUnix, 0),
		Duration: time.Duration(s.cfg.EpochSeconds) * time.Second,
	}
	log.Printf("INFO: Epoch oracle at epoch %d (genesis %d, %ds per epoch)",
		oracle.CurrentEpoch(), s.cfg.GenesisUnix, s.cfg.EpochSeconds)

	eng, err := engine.New(engine.Config{
		Store:              st,
		Oracle:             oracle,
		Registry:           registry.NewMemoryRegistry(),
		Generator:          registry.HashGenerator{},
		Payees:             payees,
		Authority:          s.cfg.Authority,
		RoyaltyBasisPoints: s.cfg.RoyaltyBasisPoints,
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	if _, err := eng.InitCollection(); err != nil {
		return fmt.Errorf("init collection: %w", err)
	}
	s.engine = eng

	listener, err := s.listen()
	if err != nil {
		return fmt.Errorf("create listener: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	semaphore := make(chan struct{}, s.cfg.MaxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.cfg.MaxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("ERROR: Failed to accept connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }()
				s.handleConnection(c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	response := s.dispatch(buf.Bytes())

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}
