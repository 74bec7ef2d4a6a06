package hantoo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"rhetenor/internal/logger"
)

// TokenProvider supplies the bearer token for broker calls. Token issuance and
// renewal live in a separate process; this side only consumes the result.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, mainly for tests.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

type tokenFile struct {
	AccessToken string `yaml:"access_token"`
	Token       string `yaml:"token"`
}

// FileTokenProvider reads the token from a yaml file the auth sidecar keeps
// fresh. With Watch it picks up rewrites without restarting the pipeline.
type FileTokenProvider struct {
	path string

	mu    sync.RWMutex
	token string
}

func NewFileTokenProvider(path string) *FileTokenProvider {
	return &FileTokenProvider{path: path}
}

func (p *FileTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.RLock()
	tok := p.token
	p.mu.RUnlock()
	if tok != "" {
		return tok, nil
	}
	return p.Reload()
}

// Reload re-reads the token file.
func (p *FileTokenProvider) Reload() (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	var tf tokenFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("parsing token file: %w", err)
	}
	tok := strings.TrimSpace(tf.AccessToken)
	if tok == "" {
		tok = strings.TrimSpace(tf.Token)
	}
	if tok == "" {
		return "", fmt.Errorf("token file %s holds no token", p.path)
	}
	p.mu.Lock()
	p.token = tok
	p.mu.Unlock()
	return tok, nil
}

// Watch reloads the token whenever the file is rewritten. Blocks until ctx is
// done; run it in its own goroutine.
func (p *FileTokenProvider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Watch the directory: editors and the auth sidecar replace the file
	// atomically, which drops the watch on the file itself.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return err
	}
	target := filepath.Clean(p.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if _, err := p.Reload(); err != nil {
				logger.Warnf("token reload failed: %v", err)
			} else {
				logger.Infof("broker token reloaded from %s", p.path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("token watcher: %v", err)
		}
	}
}
