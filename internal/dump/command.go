package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/rhythmcache/ziprand"
	"github.com/rhythmcache/ziprand/internal/sources"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

type Command struct {
	Output flags.Filename `short:"o" long:"output" description:"write the entry to this file instead of stdout" default:"-" default-mask:"stdout"`
	Args   struct {
		Archive string `positional-arg-name:"archive" description:"local path, s3:// URI, or http(s):// URL of the ZIP archive" required:"yes"`
		Entry   string `positional-arg-name:"entry" description:"name of the stored entry to dump" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Command) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	src, err := sources.Open(ctx, c.Args.Archive)
	if err != nil {
		return err
	}

	a, err := ziprand.Open(src)
	if err != nil {
		if closer, ok := src.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		return err
	}
	defer a.Close()

	f, err := a.OpenName(c.Args.Entry)
	if err != nil {
		if errors.Is(err, ziprand.ErrCompressed) {
			return fmt.Errorf("%w; only stored entries can be dumped", err)
		}
		return err
	}
	defer f.Close()

	if string(c.Output) == "-" {
		return c.dumpTo(os.Stdout, f, false)
	}

	out, err := os.Create(string(c.Output))
	if err != nil {
		return fmt.Errorf("create %q error: %w", c.Output, err)
	}
	if err = c.dumpTo(out, f, true); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// dumpTo copies the whole entry to w. With a progress bar on file output,
// throttled log lines otherwise so stdout stays clean for piping.
func (c *Command) dumpTo(w io.Writer, f *ziprand.File, showBar bool) error {
	size := f.Size()

	if showBar {
		bar := progressbar.DefaultBytes(size, fmt.Sprintf(`dumping "%s"`, f.Name()))
		defer bar.Close()
		w = io.MultiWriter(w, bar)
	} else {
		w = io.MultiWriter(w, &progressLogger{name: f.Name(), size: size, sometimes: rate.Sometimes{Interval: 5 * time.Second}})
	}

	written, err := io.Copy(w, f)
	if err != nil {
		return fmt.Errorf(`dump "%s" error: %w`, f.Name(), err)
	}
	if written != size {
		return fmt.Errorf(`dump "%s" error: wrote %d of %d bytes`, f.Name(), written, size)
	}
	return nil
}

type progressLogger struct {
	name      string
	size      int64
	written   int64
	sometimes rate.Sometimes
}

func (l *progressLogger) Write(p []byte) (int, error) {
	l.written += int64(len(p))
	l.sometimes.Do(func() {
		log.Printf(`dumped %s / %s of "%s" so far`, humanize.IBytes(uint64(l.written)), humanize.IBytes(uint64(l.size)), l.name)
	})
	return len(p), nil
}
