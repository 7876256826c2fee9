package validator

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const refreshInterval = 1 * time.Hour

// LoadDisposableFile replaces the disposable-domain set with the contents of
// a file, one domain per line.
func (v *EmailValidator) LoadDisposableFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	v.setDisposable(parseDomainList(string(data)))
	v.log.Infof("loaded %d disposable domains from %s", v.disposableCount(), path)
	return nil
}

// RefreshDisposable periodically re-downloads the disposable-domain list from
// url until the context is cancelled.
func (v *EmailValidator) RefreshDisposable(ctx context.Context, url string) {
	client := resty.New()
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	v.fetchDisposable(ctx, client, url)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.fetchDisposable(ctx, client, url)
		}
	}
}

func (v *EmailValidator) fetchDisposable(ctx context.Context, client *resty.Client, url string) {
	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		v.log.Errorf("failed to fetch disposable domains from %s: %v", url, err)
		return
	}
	if resp.StatusCode() != http.StatusOK {
		v.log.Errorf("disposable domain list fetch returned %d", resp.StatusCode())
		return
	}
	v.setDisposable(parseDomainList(string(resp.Body())))
	v.log.Infof("refreshed disposable domain list, %d entries", v.disposableCount())
}

func parseDomainList(data string) map[string]struct{} {
	domains := make(map[string]struct{})
	for _, line := range strings.Split(data, "\n") {
		domain := strings.ToLower(strings.TrimSpace(line))
		if domain != "" {
			domains[domain] = struct{}{}
		}
	}
	return domains
}

func (v *EmailValidator) setDisposable(domains map[string]struct{}) {
	v.mu.Lock()
	v.disposable = domains
	v.mu.Unlock()
}

func (v *EmailValidator) disposableCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.disposable)
}
