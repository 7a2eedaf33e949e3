package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"fic-go/internal/config"
	"fic-go/internal/encryption"
	"fic-go/internal/fic"
	"fic-go/internal/fs"
	"fic-go/internal/store"
)

// Options carries per-invocation settings that do not belong in the config file.
type Options struct {
	// Stderr receives warnings and errors. Defaults to os.Stderr.
	Stderr io.Writer
	// Verbose lowers the stderr threshold from WARN to DEBUG.
	Verbose bool
	// Passphrase unlocks the private key when the baseline is encrypted.
	Passphrase fic.PassphraseFunc
}

// FICApp is the application layer between the CLI and fic.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and releases resources on Close.
type FICApp struct {
	cfg     *config.Config
	store   fic.SnapshotStore
	fsmgr   fic.FilesystemManager
	service *fic.Service
	runID   string
	logFile *os.File
}

// NewFICApp creates a fully wired FICApp from the given config.
// The caller must call Close when done.
func NewFICApp(ctx context.Context, cfg *config.Config, opts Options) (*FICApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	var storeOpts []store.Option
	if enc != nil {
		if !enc.IsConfigured() {
			return nil, fmt.Errorf("encryption is enabled but no keys exist: run `fic keys init`")
		}
		storeOpts = append(storeOpts, store.WithEncryption(enc, opts.Passphrase))
	}

	st, err := store.NewStoreFromConfig(ctx, cfg.Store, cfg.BaseDir, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	runID := uuid.New().String()
	stderrLevel := slog.LevelWarn
	if opts.Verbose {
		stderrLevel = slog.LevelDebug
	}
	logger, logFile, err := newLogger(cfg.LogDir, runID, stderr, stderrLevel)
	if err != nil {
		closeStore(st)
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	if cfg.HostID != "" {
		logger = logger.With("host", cfg.HostID)
	}

	fsmgr := fs.NewOSFilesystemManager(cfg.Scan.Ignore)
	svc := fic.NewService(st, fsmgr, &slogAdapter{l: logger}, fic.RealClock{}, fixedID(runID),
		fic.WithWorkers(cfg.Scan.Workers))

	return &FICApp{
		cfg:     cfg,
		store:   st,
		fsmgr:   fsmgr,
		service: svc,
		runID:   runID,
		logFile: logFile,
	}, nil
}

// RunID identifies this invocation in the log file and in run history.
func (a *FICApp) RunID() string {
	return a.runID
}

// Init resolves rawPath and records its baseline.
func (a *FICApp) Init(rawPath string) (*fic.InitResult, error) {
	root, err := a.resolveRoot(rawPath)
	if err != nil {
		return nil, err
	}
	return a.service.Init(root)
}

// Check resolves rawPath and compares it with the baseline.
func (a *FICApp) Check(rawPath string) (*fic.CheckResult, error) {
	root, err := a.resolveRoot(rawPath)
	if err != nil {
		return nil, err
	}
	return a.service.Check(root)
}

// History returns the most recent init and check runs.
func (a *FICApp) History(limit int) ([]*fic.Run, error) {
	return a.service.History(limit)
}

// Close releases the store and the log file.
func (a *FICApp) Close() error {
	err := closeStore(a.store)
	if a.logFile != nil {
		a.logFile.Close()
	}
	return err
}

func (a *FICApp) resolveRoot(rawPath string) (*fic.Path, error) {
	root, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fic.ErrInvalidRoot, err)
	}
	return root, nil
}

// SetupKeys generates the age key pair named by cfg, sealing the private
// key with passphrase.
func SetupKeys(cfg *config.Config, passphrase string) error {
	ecfg := cfg.Encryption
	if ecfg.PublicKeyPath == "" || ecfg.PrivateKeyPath == "" {
		return fmt.Errorf("encryption.public_key_path and encryption.private_key_path must be set")
	}
	if err := encryption.NewAgeEncryptor(ecfg).Setup(passphrase); err != nil {
		return fmt.Errorf("setting up keys: %w", err)
	}
	return nil
}

func closeStore(st fic.SnapshotStore) error {
	if c, ok := st.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("closing store: %w", err)
		}
	}
	return nil
}

// fixedID hands out the invocation's run ID so log lines and the recorded
// run share one identifier.
type fixedID string

func (id fixedID) New() string { return string(id) }
