// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/luxfi/veil"
	"github.com/luxfi/veil/cluster"
	"github.com/luxfi/veil/config"
	"github.com/luxfi/veil/metrics"
	"github.com/luxfi/veil/utils"
)

const initDefinitionTimeout = 30 * time.Second

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "veil",
	Short: "Veil - confidential-metadata messaging protocol CLI",
	Long: `Veil is a messaging protocol core where message metadata can be kept
confidential: sender and recipient are stored only as encrypted commitments
and access is verified by a secure-computation cluster.

This CLI provides key generation, commitment derivation, an end-to-end demo,
and a dev node running the in-process cluster.`,
	Version: fmt.Sprintf("%s (built %s)", version, buildDate),
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().AddFlagSet(config.BuildFlagSet())
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an x25519 key pair",
	Long:  `Generate an x25519 key pair for registering an identity or sealing metadata.`,
	Run: func(cmd *cobra.Command, args []string) {
		priv, pub, err := cluster.GenerateKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Private key: %x\n", priv)
		fmt.Printf("Public key:  %x\n", pub)
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit <owner-hex>",
	Short: "Derive the identity commitment of an owner",
	Long:  `Derive the canonical 32-byte identity commitment of a hex-encoded owner address.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		owner, err := hexToID(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid owner address: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Commitment: %x\n", veil.CommitmentOf(owner))
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the end-to-end protocol flow",
	Long: `Run the full protocol flow against an in-process cluster: register two
identities, exchange a plain and a confidential message, then verify access
to the confidential message as the recipient and as a stranger.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDemo(); err != nil {
			fmt.Fprintf(os.Stderr, "Demo failed: %v\n", err)
			os.Exit(1)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a dev node",
	Long: `Run a dev node: the protocol engine with an in-process cluster, notices
logged as they are published, and prometheus metrics served over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		v, err := config.BuildViper(cmd.Flags())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read configuration: %v\n", err)
			os.Exit(1)
		}
		cfg, err := config.NewConfig(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build configuration: %v\n", err)
			os.Exit(1)
		}
		if err := serve(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Node exited: %v\n", err)
			os.Exit(1)
		}
	},
}

func newLogger(prefix, level string) (log.Logger, error) {
	logLevel, err := log.ToLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	return log.NewLogger(
		prefix,
		*log.NewWrappedCore(
			logLevel,
			os.Stdout,
			log.JSON.ConsoleEncoder(),
		),
	), nil
}

func serve(cfg config.Config) error {
	logger, err := newLogger("veil", cfg.LogLevel)
	if err != nil {
		return err
	}

	if len(cfg.ClusterNodeIDs()) > 0 {
		logger.Warn("dev node ignores cluster-nodes and runs the in-process cluster")
	}
	local, err := cluster.NewLocal(logger)
	if err != nil {
		return fmt.Errorf("failed to start cluster: %w", err)
	}

	registry := prometheus.NewRegistry()
	notices := veil.NewChannelEmitter(logger, cfg.NoticeBuffer)
	engine := veil.New(veil.Config{
		Log:        logger,
		Emitter:    notices,
		Cluster:    local,
		ClusterKey: local.PublicKey(),
		Metrics:    metrics.New(registry),
	})

	ctx := context.Background()
	for _, kind := range []cluster.Kind{cluster.KindAccessCheck, cluster.KindProbeAdd} {
		err := utils.WithRetriesTimeout(logger, func() error {
			return engine.InitDefinition(ctx, kind)
		}, initDefinitionTimeout)
		if err != nil {
			return fmt.Errorf("failed to initialize %s: %w", kind, err)
		}
	}

	go func() {
		for n := range notices.Notices() {
			b, err := veil.MarshalNotice(n)
			if err != nil {
				logger.Error("failed to marshal notice", log.Err(err))
				continue
			}
			logger.Info("notice published",
				log.Stringer("type", veil.NoticeType(n.Type())),
			)
			fmt.Printf("notice %x\n", b)
		}
	}()

	metadataKey := local.MetadataKey()
	logger.Info("dev node ready",
		log.Stringer("metadataKey", ids.ID(metadataKey)),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(fmt.Sprintf(":%d", cfg.MetricsPort), mux)
}

func runDemo() error {
	logger, err := newLogger("veil-demo", "info")
	if err != nil {
		return err
	}
	local, err := cluster.NewLocal(logger)
	if err != nil {
		return err
	}
	notices := veil.NewChannelEmitter(logger, 256)
	engine := veil.New(veil.Config{
		Log:        logger,
		Emitter:    notices,
		Cluster:    local,
		ClusterKey: local.PublicKey(),
	})

	ctx := context.Background()
	if err := engine.InitDefinition(ctx, cluster.KindAccessCheck); err != nil {
		return err
	}

	alice := ids.GenerateTestID()
	bob := ids.GenerateTestID()
	charlie := ids.GenerateTestID()

	_, alicePub, err := cluster.GenerateKey()
	if err != nil {
		return err
	}
	_, bobPub, err := cluster.GenerateKey()
	if err != nil {
		return err
	}
	if _, err := engine.Register(alice, alicePub); err != nil {
		return err
	}
	if _, err := engine.Register(bob, bobPub); err != nil {
		return err
	}
	fmt.Printf("registered alice %s\n", alice)
	fmt.Printf("registered bob   %s\n", bob)

	// Plain path: metadata public, content client-encrypted.
	index, err := engine.SendPlain(alice, bob, []byte("ciphertext goes here"), [veil.ContentNonceLen]byte{})
	if err != nil {
		return err
	}
	if err := engine.MarkRead(bob, alice, bob, index-1); err != nil {
		return err
	}
	fmt.Printf("plain message %d sent and read\n", index)

	// Confidential path: commitments sealed to the cluster.
	session, err := cluster.NewSession(local.MetadataKey())
	if err != nil {
		return err
	}
	encSender, err := session.Seal(cluster.SlotSender, veil.CommitmentOf(alice))
	if err != nil {
		return err
	}
	encRecipient, err := session.Seal(cluster.SlotRecipient, veil.CommitmentOf(bob))
	if err != nil {
		return err
	}
	seq, err := engine.SendConfidential(
		alice, 0,
		encSender, encRecipient,
		[]byte("sealed ciphertext"), [veil.ContentNonceLen]byte{},
		session.PublicKey(), session.Nonce(),
	)
	if err != nil {
		return err
	}
	fmt.Printf("confidential message stored, sequence %d\n", seq)

	msgAddr := veil.ConfidentialMessageAddress(alice, 0)
	for i, claimant := range []ids.ID{bob, charlie} {
		granted, err := checkAccess(ctx, engine, local, notices, uint64(i+1), msgAddr, claimant)
		if err != nil {
			return err
		}
		fmt.Printf("access for %s: %v\n", claimant, granted)
	}
	return nil
}

// checkAccess queues an access check claiming the given owner and waits for
// the settle notice.
func checkAccess(
	ctx context.Context,
	engine *veil.Engine,
	local *cluster.Local,
	notices *veil.ChannelEmitter,
	computationID uint64,
	msgAddr ids.ID,
	claimant ids.ID,
) (bool, error) {
	session, err := cluster.NewSession(local.MetadataKey())
	if err != nil {
		return false, err
	}
	encRequester, err := session.Seal(cluster.SlotRequester, veil.CommitmentOf(claimant))
	if err != nil {
		return false, err
	}
	err = engine.RequestAccessCheck(ctx, claimant, computationID, msgAddr, encRequester, session.PublicKey(), session.Nonce())
	if err != nil {
		return false, err
	}

	deadline := time.After(10 * time.Second)
	for {
		select {
		case n := <-notices.Notices():
			verified, ok := n.(*veil.AccessVerified)
			if !ok {
				continue
			}
			block, err := session.OpenResult(verified.Result, verified.Nonce)
			if err != nil {
				return false, err
			}
			return block[0] == 1, nil
		case <-deadline:
			return false, fmt.Errorf("access check did not settle")
		}
	}
}

func hexToID(s string) (ids.ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ids.Empty, err
	}
	if len(b) != 32 {
		return ids.Empty, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	var id ids.ID
	copy(id[:], b)
	return id, nil
}
