package keydb

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/syncmap"
)

const defaultRefreshInterval = 10 * time.Minute

var (
	ErrAlreadyExists    = errors.New("secret already exists")
	ErrWrongFileType    = errors.New("file type not supported")
	ErrFailedToReadFile = errors.New("failed to read file")
)

// SecretPaths is a key database backed by files. The basename of each
// file is the key id and its content, without a trailing newline, the
// secret. Files are re-read periodically so secrets can be rotated in
// place.
type SecretPaths struct {
	mu              sync.RWMutex
	secrets         map[string][]byte
	files           *syncmap.Map
	refreshInterval time.Duration
	start           sync.Once
	stop            sync.Once
	quit            chan struct{}
}

// NewSecretPaths creates a SecretPaths refreshing every d. The refresher
// goroutine starts with the first Add; stop it with Close.
func NewSecretPaths(d time.Duration) *SecretPaths {
	if d <= 0 {
		d = defaultRefreshInterval
	}

	return &SecretPaths{
		secrets:         make(map[string][]byte),
		files:           &syncmap.Map{},
		refreshInterval: d,
		quit:            make(chan struct{}),
	}
}

// Secret returns a copy of the secret stored for keyID.
func (sp *SecretPaths) Secret(keyID string) ([]byte, bool) {
	sp.mu.RLock()
	dat, ok := sp.secrets[keyID]
	sp.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return append([]byte(nil), dat...), true
}

func (sp *SecretPaths) updateSecret(keyID string, dat []byte) {
	if len(dat) > 0 && dat[len(dat)-1] == '\n' {
		dat = dat[:len(dat)-1]
	}
	sp.mu.Lock()
	sp.secrets[keyID] = dat
	sp.mu.Unlock()
}

// Add registers a file, or every file in a directory. Add is not safe
// to call concurrently.
func (sp *SecretPaths) Add(p string) error {
	sp.start.Do(func() {
		go sp.runRefresher()
	})

	fi, err := os.Lstat(p)
	if err != nil {
		log.Errorf("Failed to stat path: %v", err)
		return err
	}

	switch mode := fi.Mode(); {
	case mode.IsRegular():
		return sp.registerSecretFile(fi.Name(), p)

	case mode.IsDir():
		return sp.handleDir(p)

	case mode&os.ModeSymlink != 0:
		if err := sp.registerSecretFile(fi.Name(), p); err != nil {
			return sp.handleDir(p)
		}
		return nil
	}

	return ErrWrongFileType
}

func (sp *SecretPaths) handleDir(p string) error {
	m, err := filepath.Glob(filepath.Join(p, "*"))
	if err != nil {
		return ErrWrongFileType
	}

	numErrors := 0
	for _, s := range m {
		if err := sp.registerSecretFile(filepath.Base(s), s); err != nil {
			numErrors++
		}
	}
	if numErrors == len(m) {
		return ErrFailedToReadFile
	}

	return nil
}

func (sp *SecretPaths) registerSecretFile(keyID, p string) error {
	if _, ok := sp.Secret(keyID); ok {
		return ErrAlreadyExists
	}
	dat, err := os.ReadFile(p)
	if err != nil {
		log.Debugf("Failed to read key file %s: %v", p, err)
		return err
	}
	sp.updateSecret(keyID, dat)
	sp.files.Store(keyID, p)

	return nil
}

func (sp *SecretPaths) refresh() {
	sp.files.Range(func(k, v interface{}) bool {
		keyID, _ := k.(string)
		p, _ := v.(string)
		dat, err := os.ReadFile(p)
		if err != nil {
			log.Errorf("Failed to read key file (%s): %v", p, err)
			return true
		}
		log.Debugf("Update key: %s", keyID)
		sp.updateSecret(keyID, dat)
		return true
	})
}

func (sp *SecretPaths) runRefresher() {
	log.Infof("Run key file refresher every %s", sp.refreshInterval)
	ticker := time.NewTicker(sp.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sp.refresh()
		case <-sp.quit:
			log.Infoln("Stop key file refresher")
			return
		}
	}
}

// Close stops the background refresher. It may be called more than once.
func (sp *SecretPaths) Close() {
	sp.stop.Do(func() {
		close(sp.quit)
	})
}
