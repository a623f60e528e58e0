package list

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rhythmcache/ziprand"
	"github.com/rhythmcache/ziprand/internal/sources"
)

type Command struct {
	Args struct {
		Archive string `positional-arg-name:"archive" description:"local path, s3:// URI, or http(s):// URL of the ZIP archive" required:"yes"`
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

	n := a.EntryCount()
	for i := 0; i < n; i++ {
		e, err := a.Entry(i)
		if err != nil {
			return err
		}
		fmt.Printf("%6d  %-10s %10s  %s\n", i, methodString(e.Method), humanize.IBytes(e.UncompressedSize), e.Name)
	}
	fmt.Printf("%d entries\n", n)

	return nil
}

func methodString(method uint16) string {
	switch method {
	case ziprand.Store:
		return "stored"
	case ziprand.Deflate:
		return "deflated"
	default:
		return fmt.Sprintf("method=%d", method)
	}
}
