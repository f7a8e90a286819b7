// Package ytdlp drives the local yt-dlp binary.
package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client shells out to yt-dlp. The binary path is configurable so
// deployments can pin a version outside PATH.
type Client struct {
	binaryPath string
}

// NewClient creates a Client for the given binary path; empty means
// "yt-dlp" on PATH.
func NewClient(binaryPath string) *Client {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	return &Client{binaryPath: binaryPath}
}

// Fetch downloads all media behind pageURL into dir and returns the final
// file paths, one per produced file. ctx bounds the whole invocation.
func (c *Client) Fetch(ctx context.Context, pageURL, dir string) ([]string, error) {
	// -f b: best single format; --print after_move:filepath with
	// --no-simulate downloads and prints each final path on its own line.
	cmd := exec.CommandContext(ctx, c.binaryPath,
		"-f", "b",
		"--no-warnings",
		"--no-simulate",
		"--restrict-filenames",
		"-o", dir+"/%(id)s.%(ext)s",
		"--print", "after_move:filepath",
		pageURL,
	)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(out.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("yt-dlp produced no files for %s", pageURL)
	}
	return paths, nil
}
