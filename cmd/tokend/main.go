/*
Copyright 2026 CK11Core Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command tokend runs the PKCS#11 token service: it wires the Object Store,
// Session & Auth Layer, Primitive Engine, and Policy Engine into a
// facade.Server, then serves the admin HTTP surface (health, readiness,
// mechanism catalog, Prometheus metrics) alongside it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cryptoklabs/ck11core/internal/config"
	"github.com/cryptoklabs/ck11core/internal/facade"
	"github.com/cryptoklabs/ck11core/internal/httputil"
	"github.com/cryptoklabs/ck11core/internal/mechanism"
	"github.com/cryptoklabs/ck11core/internal/policy"
	"github.com/cryptoklabs/ck11core/internal/primitive"
	"github.com/cryptoklabs/ck11core/internal/session"
	"github.com/cryptoklabs/ck11core/internal/store/memory"
	storepg "github.com/cryptoklabs/ck11core/internal/store/postgres"
	storeredis "github.com/cryptoklabs/ck11core/internal/store/redis"
	"github.com/cryptoklabs/ck11core/pkg/logging"
	"github.com/cryptoklabs/ck11core/pkg/metrics"
)

// flags groups tokend's runtime configuration: config.Options for the
// settings shared with the rest of the ambient stack (transport/admin
// addresses, store connections, session TTL), plus the engine-backend
// selection and remote KMS credentials, which config.Options has no place
// for since they're specific to this command.
type flags struct {
	config.Options

	metricsAddr string
	redisDB     int

	engineBackend string // local, aws-kms, azure-keyvault, gcp-kms, vault

	awsKeyID    string
	awsRegion   string
	azureVault  string
	azureKey    string
	gcpKeyName  string
	vaultAddr   string
	vaultToken  string
	vaultKeyRef string

	audit bool
}

// parseFlags reads configuration from the environment. Unlike the teacher's
// session-api, which takes most settings as CLI flags with env fallbacks,
// tokend is env-only: it runs one token service per container/process and
// has no per-invocation flags worth distinguishing from deployment config.
func parseFlags() *flags {
	f := &flags{Options: config.DefaultOptions()}
	f.Options.TransportAddr = envString("TRANSPORT_ADDR", f.Options.TransportAddr)
	f.Options.AdminAddr = envString("HEALTH_ADDR", ":8081")
	f.Options.PostgresConn = envString("POSTGRES_CONN", "")
	f.Options.RedisAddr = envString("REDIS_ADDR", "")
	f.Options.JWTSigningKey = []byte(envString("JWT_SIGNING_KEY", ""))
	f.Options.SessionTTL = envDuration("SESSION_TTL", time.Hour)
	f.metricsAddr = envString("METRICS_ADDR", ":9090")
	f.redisDB = int(envInt64("REDIS_DB", 0))
	f.engineBackend = envString("ENGINE_BACKEND", "local")
	f.awsKeyID = envString("AWS_KMS_KEY_ID", "")
	f.awsRegion = envString("AWS_REGION", "")
	f.azureVault = envString("AZURE_VAULT_URL", "")
	f.azureKey = envString("AZURE_KEY_NAME", "")
	f.gcpKeyName = envString("GCP_KMS_KEY_NAME", "")
	f.vaultAddr = envString("VAULT_ADDR", "")
	f.vaultToken = envString("VAULT_TOKEN", "")
	f.vaultKeyRef = envString("VAULT_KEY_NAME", "")
	f.audit = envString("AUDIT_ENABLED", "") == "true"
	return f
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	f := parseFlags()
	if err := f.Options.Validate(); err != nil {
		// Validate enforces a production posture (PostgreSQL-backed, a
		// positive session TTL); tokend still allows a memory-store dev/test
		// run, so a failure is logged, not fatal.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	log, syncLog, err := logging.NewLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer syncLog()
	slog := logging.SlogFromLogr(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	objects, objectsCleanup, err := initObjectStore(f, log)
	if err != nil {
		return err
	}
	defer objectsCleanup()

	sessions, err := initSessionStore(f)
	if err != nil {
		return err
	}

	engine, err := initEngine(ctx, f)
	if err != nil {
		return err
	}

	var auditLogger *policy.AuditLogger
	if f.audit {
		auditLogger = policy.NewAuditLogger(slog)
	}

	srv := facade.NewServer(objects, sessions, engine, &policy.Engine{}, auditLogger)
	srv.Metrics = metrics.NewTokenMetrics(metrics.Config{Namespace: "tokend"})

	healthSrv := newHealthServer(f.AdminAddr, objects)
	metricsSrv := newMetricsServer(f.metricsAddr)

	startHTTPServer(log, "health", f.AdminAddr, healthSrv)
	startHTTPServer(log, "metrics", f.metricsAddr, metricsSrv)

	verifier := facade.JWTVerifier{Key: f.JWTSigningKey, SessionTTL: f.SessionTTL}
	transport, err := facade.NewListener(f.TransportAddr, srv, verifier, log)
	if err != nil {
		return fmt.Errorf("starting command transport: %w", err)
	}
	go func() {
		if err := transport.Serve(ctx); err != nil {
			log.Error(err, "command transport error")
		}
	}()

	log.Info("tokend ready",
		"transport", f.TransportAddr,
		"health", f.AdminAddr,
		"metrics", f.metricsAddr,
		"engine", f.engineBackend,
		"audit", f.audit,
	)

	<-ctx.Done()
	log.Info("shutting down")
	_ = transport.Close()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutCancel()
	for _, s := range []struct {
		name string
		srv  *http.Server
	}{
		{"metrics", metricsSrv},
		{"health", healthSrv},
	} {
		if err := s.srv.Shutdown(shutCtx); err != nil {
			log.Error(err, "server shutdown error", "server", s.name)
		}
	}
	return nil
}

func startHTTPServer(log logr.Logger, name, addr string, srv *http.Server) {
	go func() {
		log.Info("starting server", "server", name, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "server error", "server", name)
		}
	}()
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}

// pingableStore is implemented by Object Store backends with a live
// connection to verify (store/postgres, store/redis); store/memory has
// nothing to ping and is always ready.
type pingableStore interface {
	Ping(ctx context.Context) error
}

func newHealthServer(addr string, objects facade.ObjectStore) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if pingable, ok := objects.(pingableStore); ok {
			if err := pingable.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("object store unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/mechanisms", func(w http.ResponseWriter, _ *http.Request) {
		_ = httputil.WriteJSON(w, http.StatusOK, mechanismCatalog())
	})
	return &http.Server{Addr: addr, Handler: mux}
}

type mechanismEntry struct {
	ID        string `json:"id"`
	KeyType   string `json:"key_type,omitempty"`
	Functions string `json:"functions"`
	MinSize   int    `json:"min_size"`
	MaxSize   int    `json:"max_size"`
	OneShot   bool   `json:"one_shot_only"`
}

func mechanismCatalog() []mechanismEntry {
	ids := mechanism.EnumerateSupported()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]mechanismEntry, 0, len(ids))
	for _, id := range ids {
		min, max := mechanism.KeySizeBounds(id)
		out = append(out, mechanismEntry{
			ID:        fmt.Sprintf("0x%08X", uint32(id)),
			KeyType:   mechanism.KeyType(id).String(),
			Functions: functionNames(mechanism.AllowedFunctions(id)),
			MinSize:   min,
			MaxSize:   max,
			OneShot:   mechanism.OneShotOnly(id),
		})
	}
	return out
}

// functionNames decomposes a Function bitset into its individual names;
// Function.String() only covers single bits.
func functionNames(fns mechanism.Function) string {
	all := []mechanism.Function{
		mechanism.FuncEncrypt, mechanism.FuncDecrypt, mechanism.FuncDigest,
		mechanism.FuncSign, mechanism.FuncSignRecover, mechanism.FuncVerify,
		mechanism.FuncVerifyRecover, mechanism.FuncGenerate,
		mechanism.FuncGenerateKeyPair, mechanism.FuncWrap, mechanism.FuncUnwrap,
		mechanism.FuncDerive,
	}
	var names []string
	for _, fn := range all {
		if fns&fn != 0 {
			names = append(names, fn.String())
		}
	}
	return strings.Join(names, "|")
}

func initObjectStore(f *flags, log logr.Logger) (facade.ObjectStore, func(), error) {
	switch {
	case f.PostgresConn != "":
		cfg := storepg.DefaultConfig()
		cfg.ConnString = f.PostgresConn
		store, err := storepg.New(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("creating postgres object store: %w", err)
		}
		migrator, err := storepg.NewMigrator(f.PostgresConn, log)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("creating migrator: %w", err)
		}
		if err := migrator.Up(); err != nil {
			_ = migrator.Close()
			store.Close()
			return nil, nil, fmt.Errorf("applying migrations: %w", err)
		}
		_ = migrator.Close()
		log.V(1).Info("object store initialized", "backend", "postgres")
		return store, func() { store.Close() }, nil
	case f.RedisAddr != "":
		store, err := storeredis.New(storeredis.Config{Addr: f.RedisAddr, DB: f.redisDB})
		if err != nil {
			return nil, nil, fmt.Errorf("creating redis object store: %w", err)
		}
		log.V(1).Info("object store initialized", "backend", "redis")
		return store, func() { _ = store.Close() }, nil
	default:
		log.V(1).Info("object store initialized", "backend", "memory")
		return memory.New(), func() {}, nil
	}
}

func initSessionStore(f *flags) (session.Store, error) {
	if f.RedisAddr == "" {
		return session.NewMemoryStore(), nil
	}
	return session.NewRedisStore(session.RedisConfig{Addr: f.RedisAddr, DB: f.redisDB})
}

func initEngine(ctx context.Context, f *flags) (primitive.Engine, error) {
	switch f.engineBackend {
	case "", "local":
		return primitive.NewLocal(), nil
	case "aws-kms":
		return primitive.NewRemoteEngine(ctx, primitive.RemoteConfig{
			Kind: primitive.RemoteAWSKMS,
			AWS:  primitive.AWSConfig{KeyID: f.awsKeyID, Region: f.awsRegion},
		})
	case "azure-keyvault":
		return primitive.NewRemoteEngine(ctx, primitive.RemoteConfig{
			Kind:  primitive.RemoteAzureKMS,
			Azure: primitive.AzureConfig{VaultURL: f.azureVault, KeyName: f.azureKey},
		})
	case "gcp-kms":
		return primitive.NewRemoteEngine(ctx, primitive.RemoteConfig{
			Kind: primitive.RemoteGCPKMS,
			GCP:  primitive.GCPConfig{KeyName: f.gcpKeyName},
		})
	case "vault":
		return primitive.NewRemoteEngine(ctx, primitive.RemoteConfig{
			Kind:  primitive.RemoteVault,
			Vault: primitive.VaultConfig{Addr: f.vaultAddr, Token: f.vaultToken, KeyName: f.vaultKeyRef},
		})
	default:
		return nil, fmt.Errorf("tokend: unknown ENGINE_BACKEND %q", f.engineBackend)
	}
}
