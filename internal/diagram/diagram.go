// Package diagram renders PlantUML blocks to images, either through a
// PlantUML server or a local plantuml command, with an on-disk cache.
package diagram

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"doorhole/internal/logging"
)

// Languages are the fenced code block info strings treated as diagrams.
var Languages = []string{"plantuml", "puml", "uml"}

// IsDiagram reports whether a fenced block language is a diagram.
func IsDiagram(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

type Config struct {
	// Server is the PlantUML server base URL; empty selects Command.
	Server   string
	Command  string
	Format   string
	CacheDir string
	Timeout  time.Duration
}

// Diagram is a rendered image.
type Diagram struct {
	Format string
	Data   []byte
	// Path is the cache file holding Data.
	Path string
}

// Renderer is not safe for concurrent use of the same cache entry from
// several processes; the last writer wins, which is harmless for a cache.
type Renderer struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Renderer {
	if cfg.Format == "" {
		cfg.Format = "svg"
	}
	if cfg.Command == "" {
		cfg.Command = "plantuml"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Renderer{cfg: cfg, client: &http.Client{}, log: log}
}

func (r *Renderer) Format() string { return r.cfg.Format }

// Render returns the image for source. baseDir is the working directory
// of the local command so relative !include paths resolve.
func (r *Renderer) Render(ctx context.Context, source string, baseDir string) (Diagram, error) {
	source = normalizeSource(source)
	path := r.cachePath(source, baseDir)
	if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
		return Diagram{Format: r.cfg.Format, Data: b, Path: path}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	var (
		data []byte
		err  error
	)
	if r.cfg.Server != "" {
		data, err = r.fromServer(ctx, source)
	} else {
		data, err = r.fromCommand(ctx, source, baseDir)
	}
	if err != nil {
		return Diagram{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.log.Warn("diagram cache unavailable", "dir", filepath.Dir(path), "err", err)
		return Diagram{Format: r.cfg.Format, Data: data}, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.log.Warn("diagram cache write failed", "path", path, "err", err)
		return Diagram{Format: r.cfg.Format, Data: data}, nil
	}
	return Diagram{Format: r.cfg.Format, Data: data, Path: path}, nil
}

// normalizeSource wraps bare diagram bodies in @startuml/@enduml.
func normalizeSource(source string) string {
	s := strings.TrimSpace(source)
	if !strings.HasPrefix(s, "@start") {
		s = "@startuml\n" + s + "\n@enduml"
	}
	return s + "\n"
}

func (r *Renderer) cachePath(source, baseDir string) string {
	h := blake3.New()
	_, _ = io.WriteString(h, r.cfg.Format+"\x00")
	if r.cfg.Server != "" {
		_, _ = io.WriteString(h, r.cfg.Server+"\x00")
	} else {
		_, _ = io.WriteString(h, r.cfg.Command+"\x00"+baseDir+"\x00")
	}
	_, _ = io.WriteString(h, source)
	key := hex.EncodeToString(h.Sum(nil))
	return filepath.Join(r.cfg.CacheDir, "doorhole-plantuml", key+"."+r.cfg.Format)
}

func (r *Renderer) fromServer(ctx context.Context, source string) ([]byte, error) {
	enc, err := Encode(source)
	if err != nil {
		return nil, fmt.Errorf("plantuml encode: %w", err)
	}
	url := strings.TrimRight(r.cfg.Server, "/") + "/" + r.cfg.Format + "/" + enc
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plantuml server: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("plantuml server: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("plantuml server: %s", resp.Status)
	}
	r.log.Debug("diagram rendered", "server", r.cfg.Server, "bytes", len(body))
	return body, nil
}

func (r *Renderer) fromCommand(ctx context.Context, source, baseDir string) ([]byte, error) {
	args := strings.Fields(r.cfg.Command)
	if len(args) == 0 {
		return nil, errors.New("plantuml: empty command")
	}
	args = append(args, "-pipe", "-t"+r.cfg.Format)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = baseDir
	cmd.Stdin = strings.NewReader(source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("plantuml: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("plantuml: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, errors.New("plantuml: empty output")
	}
	r.log.Debug("diagram rendered", "command", args[0], "dir", baseDir, "bytes", stdout.Len())
	return stdout.Bytes(), nil
}

// InlineSVG strips the XML prolog so the SVG can be embedded in HTML.
func InlineSVG(data []byte) string {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, "<?xml") {
		if i := strings.Index(s, "?>"); i >= 0 {
			s = strings.TrimSpace(s[i+2:])
		}
	}
	return s
}
