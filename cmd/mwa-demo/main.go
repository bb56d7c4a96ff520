// SPDX-License-Identifier: Apache-2.0

// Command mwa-demo runs a wallet-side Mobile Wallet Adapter endpoint over
// stdio, backed by a mock signer and a mock transaction submitter. It
// exists to exercise pkg/mwa end-to-end outside of tests.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/config"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/logger"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/mwa"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/process"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/rpcendpoint"
	"github.com/Dadudida-com/mobile-wallet-adapter/pkg/transport"
	"github.com/mr-tron/base58"
)

func main() {
	killFlag := flag.Bool("kill", false, "kill any existing instance of mwa-demo")
	flag.Parse()

	if *killFlag {
		if err := process.KillExistingProcess(); err != nil {
			os.Stderr.WriteString("failed to kill existing process: " + err.Error() + "\n")
			os.Exit(1)
		}
		os.Stderr.WriteString("successfully killed existing instance (if any)\n")
		os.Exit(0)
	}

	isIsolatedEnvironment := os.Getenv("MWA_DEMO_HOME") != ""
	if !isIsolatedEnvironment {
		locked, err := process.LockPIDFile()
		if err != nil {
			os.Stderr.WriteString("failed to acquire PID file lock: " + err.Error() + "\n")
			os.Exit(1)
		}
		if !locked {
			os.Stderr.WriteString("another instance of mwa-demo is already running\n")
			os.Exit(1)
		}
		defer func() {
			if err := process.UnlockPIDFile(); err != nil {
				os.Stderr.WriteString("failed to unlock PID file: " + err.Error() + "\n")
			}
		}()
	}

	logr, err := logger.NewLogger("mwa-demo")
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	zapLogger := logr.(*logger.ZapLogger).Logger

	appConfig, err := config.LoadConfigWithFallback(zapLogger)
	if err != nil {
		zapLogger.Error("failed to load configuration", zap.Error(err))
		os.Exit(1)
	}

	var framer transport.Framer
	switch appConfig.Endpoint.Transport {
	case "line":
		framer = transport.NewLineFramer(os.Stdin, os.Stdout)
	default:
		framer = transport.NewLengthPrefixedFramer(os.Stdin, os.Stdout)
	}

	endpoint := rpcendpoint.New(rpcendpoint.Config{
		Framer:      framer,
		Logger:      logr,
		CallTimeout: appConfig.Endpoint.CallTimeout,
	})

	signer := newMockSigner()
	server := mwa.NewServer(endpoint, mwa.Handlers{
		Authorize:              signer.handleAuthorize,
		SignTransaction:        signer.handleSign,
		SignMessage:            signer.handleSign,
		SignAndSendTransaction: signer.handleSignAndSend,
	}, logr)
	server.Install()

	logr.Info("starting mwa-demo endpoint over stdio")

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := endpoint.Serve(ctx); err != nil {
			logr.Error("endpoint serve error", zap.Error(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logr.Info("mwa-demo received shutdown signal")

	cancel()
	endpoint.Close()
	wg.Wait()
	logr.Info("mwa-demo shutdown complete")
}

// mockSigner grants every authorize request a fresh random auth token and
// "signs" payloads by appending a fixed marker byte, standing in for a
// real keystore collaborator.
type mockSigner struct {
	mu         sync.Mutex
	authTokens map[string]bool
}

func newMockSigner() *mockSigner {
	return &mockSigner{authTokens: make(map[string]bool)}
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *mockSigner) handleAuthorize(ctx context.Context, req *mwa.AuthorizeRequest, future *rpcendpoint.RequestFuture) {
	token, err := randomToken()
	if err != nil {
		future.CompleteWithAuthTokenNotValid()
		return
	}

	pub := make([]byte, 32)
	_, _ = rand.Read(pub)
	publicKey := base58.Encode(pub)

	s.mu.Lock()
	s.authTokens[token] = true
	s.mu.Unlock()

	future.Complete(&mwa.AuthorizeResult{AuthToken: token, PublicKey: publicKey})
}

func (s *mockSigner) knowsToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authTokens[token]
}

func (s *mockSigner) handleSign(ctx context.Context, req *mwa.SignRequest, future *rpcendpoint.RequestFuture) {
	if !s.knowsToken(req.AuthToken) {
		future.CompleteWithReauthorizationRequired()
		return
	}
	signed := make([][]byte, len(req.Payloads))
	for i, p := range req.Payloads {
		signed[i] = append(append([]byte{}, p...), 0x5A)
	}
	future.Complete(&mwa.SignResult{SignedPayloads: signed})
}

func (s *mockSigner) handleSignAndSend(ctx context.Context, req *mwa.SignAndSendRequest, future *rpcendpoint.RequestFuture) {
	if !s.knowsToken(req.AuthToken) {
		future.CompleteWithReauthorizationRequired()
		return
	}
	signatures := make([][]byte, len(req.Payloads))
	for i := range req.Payloads {
		sig := make([]byte, 64)
		_, _ = rand.Read(sig)
		signatures[i] = sig
	}
	future.Complete(&mwa.SignAndSendResult{Signatures: signatures})
}
