// Command fetchdata downloads the raw inputs the pipeline reads: the DEM
// grid, the ward boundary file, and the census table. Downloads stream to
// disk, failed requests retry with exponential backoff, and .zip boundary
// archives are extracted next to where they land.
//
// Usage:
//
//	go run ./cmd/fetchdata \
//	  -dem-url https://example.org/dem/mumbai_dem.asc \
//	  -wards-url https://example.org/boundaries/mumbai_wards.zip \
//	  -census-url https://example.org/census/ward_demographics.csv \
//	  -out data/raw
package main

import (
	"archive/zip"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const maxAttempts = 5

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	demURL := flag.String("dem-url", "", "URL of the ASCII grid DEM")
	wardsURL := flag.String("wards-url", "", "URL of the ward boundary file (GeoJSON or zip archive)")
	censusURL := flag.String("census-url", "", "URL of the ward census CSV")
	outDir := flag.String("out", "data/raw", "directory to download inputs under")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-request timeout")
	flag.Parse()

	targets := []struct {
		url    string
		subdir string
	}{
		{*demURL, "dem"},
		{*wardsURL, "boundaries"},
		{*censusURL, "census"},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: *timeout}
	fetched := 0
	for _, t := range targets {
		if t.url == "" {
			continue
		}
		dest, err := destPath(*outDir, t.subdir, t.url)
		if err != nil {
			return err
		}
		if err := download(ctx, client, t.url, dest); err != nil {
			return err
		}
		fetched++

		if strings.EqualFold(filepath.Ext(dest), ".zip") {
			names, err := extractZip(dest, filepath.Dir(dest))
			if err != nil {
				return fmt.Errorf("extract %s: %w", dest, err)
			}
			log.Printf("extracted %s: %s", dest, strings.Join(names, ", "))
		}
	}

	if fetched == 0 {
		flag.Usage()
		return fmt.Errorf("nothing to fetch: pass at least one of -dem-url, -wards-url, -census-url")
	}
	log.Printf("fetched %d input(s) into %s", fetched, *outDir)
	return nil
}

func destPath(outDir, subdir, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("url %q has no file name", rawURL)
	}
	return filepath.Join(outDir, subdir, name), nil
}

// download fetches url into dest, retrying with exponential backoff.
func download(ctx context.Context, client *http.Client, rawURL, dest string) error {
	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			log.Printf("retrying %s in %s (attempt %d/%d): %v", rawURL, backoff, attempt, maxAttempts, lastErr)
			if !sleepWithContext(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff, maxBackoff)
		}

		n, err := fetchOnce(ctx, client, rawURL, dest)
		if err == nil {
			log.Printf("downloaded %s -> %s (%d bytes)", rawURL, dest, n)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}
	return fmt.Errorf("download %s: giving up after %d attempts: %w", rawURL, maxAttempts, lastErr)
}

// fetchOnce streams one response body to dest via a temp file so partial
// downloads never land under the final name.
func fetchOnce(ctx context.Context, client *http.Client, rawURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	return n, os.Rename(tmp.Name(), dest)
}

// extractZip unpacks an archive into destDir and returns the extracted names.
func extractZip(src, destDir string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var names []string
	for _, f := range r.File {
		if !filepath.IsLocal(f.Name) {
			return nil, fmt.Errorf("archive entry %q escapes the target directory", f.Name)
		}
		target := filepath.Join(destDir, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}
		if err := extractFile(f, target); err != nil {
			return nil, fmt.Errorf("entry %q: %w", f.Name, err)
		}
		names = append(names, f.Name)
	}
	return names, nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
