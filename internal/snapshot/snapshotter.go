package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"katalog/internal/katalog"
)

const snapshotSuffix = ".katalog"

// Backuper writes a consistent copy of an open catalog to a new file.
type Backuper interface {
	BackupTo(destPath string) error
}

// Snapshotter pushes catalog copies to a sink and pulls them back.
type Snapshotter struct {
	sink   Sink
	enc    *AgeEncryptor
	dec    *AgeDecryptor
	clock  katalog.Clock
	ids    katalog.IDGenerator
	logger katalog.Logger
}

// Option customizes a Snapshotter.
type Option func(*Snapshotter)

// WithEncryptor encrypts pushed snapshots.
func WithEncryptor(enc *AgeEncryptor) Option { return func(s *Snapshotter) { s.enc = enc } }

// WithDecryptor allows pulling encrypted snapshots.
func WithDecryptor(dec *AgeDecryptor) Option { return func(s *Snapshotter) { s.dec = dec } }

func WithClock(c katalog.Clock) Option { return func(s *Snapshotter) { s.clock = c } }

func WithIDGenerator(g katalog.IDGenerator) Option { return func(s *Snapshotter) { s.ids = g } }

func WithLogger(l katalog.Logger) Option { return func(s *Snapshotter) { s.logger = l } }

func New(sink Sink, opts ...Option) *Snapshotter {
	s := &Snapshotter{
		sink:   sink,
		clock:  katalog.RealClock{},
		ids:    katalog.UUIDGenerator{},
		logger: katalog.NewNopLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = katalog.NewNopLogger()
	}
	if s.clock == nil {
		s.clock = katalog.RealClock{}
	}
	return s
}

// Push backs up the catalog into a temp directory, encrypts it when an
// encryptor is configured, and uploads it under a name derived from the
// current time. It returns the stored snapshot's info.
func (s *Snapshotter) Push(ctx context.Context, store Backuper) (Info, error) {
	tmpDir, err := os.MkdirTemp("", "katalog-snapshot-*")
	if err != nil {
		return Info{}, fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	plainPath := filepath.Join(tmpDir, "catalog"+snapshotSuffix)
	if err := store.BackupTo(plainPath); err != nil {
		return Info{}, fmt.Errorf("backing up catalog: %w", err)
	}

	name := s.newName()
	uploadPath := plainPath
	if s.enc != nil {
		uploadPath = plainPath + encryptedSuffix
		name += encryptedSuffix
		if err := encryptFile(s.enc, plainPath, uploadPath); err != nil {
			return Info{}, err
		}
	}

	f, err := os.Open(uploadPath)
	if err != nil {
		return Info{}, fmt.Errorf("opening snapshot for upload: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("stat snapshot: %w", err)
	}

	if err := s.sink.Put(ctx, name, f, st.Size()); err != nil {
		return Info{}, fmt.Errorf("uploading snapshot: %w", err)
	}
	s.logger.Info("snapshot pushed", "name", name, "bytes", st.Size(), "encrypted", s.enc != nil)
	return Info{Name: name, Size: st.Size(), ModTime: s.clock.Now().UTC()}, nil
}

// List returns the sink's snapshots, newest first.
func (s *Snapshotter) List(ctx context.Context) ([]Info, error) {
	return s.sink.List(ctx)
}

// Pull restores snapshot name to destPath, decrypting it if needed. destPath
// must not exist; it is never overwritten.
func (s *Snapshotter) Pull(ctx context.Context, name, destPath string) error {
	encrypted := strings.HasSuffix(name, encryptedSuffix)
	if encrypted && s.dec == nil {
		return fmt.Errorf("snapshot %s is encrypted and no age identity is configured", name)
	}

	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("refusing to overwrite %s", destPath)
		}
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	success := false
	defer func() {
		dest.Close()
		if !success {
			os.Remove(destPath)
		}
	}()

	if !encrypted {
		if err := s.sink.Get(ctx, name, dest); err != nil {
			return err
		}
	} else {
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(s.sink.Get(ctx, name, pw))
		}()
		err := s.dec.Decrypt(pr, dest)
		pr.Close()
		if err != nil {
			return fmt.Errorf("pulling %s: %w", name, err)
		}
	}

	if err := dest.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", destPath, err)
	}
	success = true
	s.logger.Info("snapshot pulled", "name", name, "dest", destPath)
	return nil
}

func (s *Snapshotter) newName() string {
	id := s.ids.New()
	if len(id) > 8 {
		id = id[:8]
	}
	return s.clock.Now().UTC().Format("20060102T150405Z") + "-" + id + snapshotSuffix
}

func encryptFile(enc *AgeEncryptor, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening catalog copy: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating encrypted copy: %w", err)
	}
	if err := enc.Encrypt(in, out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing encrypted copy: %w", err)
	}
	return nil
}
