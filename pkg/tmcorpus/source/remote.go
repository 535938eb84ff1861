package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/tmcorpus/pkg/tmcorpus/internalerr"
)

// Remote mirrors datasets published as `<BaseURL>/<name>/<name>.jsonl` (plus
// the info file) into CacheDir and reads them from there.
type Remote struct {
	BaseURL    string
	CacheDir   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Load implements Source. Files already present in the cache are not fetched again.
func (r Remote) Load(ctx context.Context, name string) (*Raw, error) {
	if r.BaseURL == "" || r.CacheDir == "" {
		return nil, fmt.Errorf("remote source: base URL and cache dir required: %w", internalerr.ErrInvalidConfig)
	}
	log := logger(r.Logger)
	dir := filepath.Join(r.CacheDir, name)

	dataURL := r.url(name, name+DataSuffix)
	dataPath := filepath.Join(dir, name+DataSuffix)
	if !exists(dataPath) {
		log.Info("downloading dataset", zap.String("dataset", name), zap.String("url", dataURL))
		found, err := r.download(ctx, dataURL, dataPath)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &internalerr.NotFoundError{Name: name, Tried: []string{dataURL}}
		}
	}

	infoPath := filepath.Join(dir, name+InfoSuffix)
	if !exists(infoPath) {
		if _, err := r.download(ctx, r.url(name, name+InfoSuffix), infoPath); err != nil {
			return nil, err
		}
	}

	return Folder{Dir: dir, Logger: r.Logger}.Load(ctx, name)
}

func (r Remote) url(name, file string) string {
	return strings.TrimSuffix(r.BaseURL, "/") + "/" + name + "/" + file
}

// download writes url to path. It reports false when the server answers 404.
func (r Remote) download(ctx context.Context, url, path string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		return false, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return false, fmt.Errorf("fetch %s: %w", url, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return false, err
	}
	return true, os.Rename(tmp, path)
}

func (r Remote) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
