//go:build !js && !wasm

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/MediaDNA/internal/media"
	"github.com/himanishpuri/MediaDNA/pkg/logger"
	"github.com/himanishpuri/MediaDNA/pkg/mediadna"
	"github.com/himanishpuri/MediaDNA/pkg/utils"
)

// batchLine is one JSON line of batch output.
type batchLine struct {
	Path   string           `json:"path"`
	ID     string           `json:"id,omitempty"`
	Bundle *mediadna.Bundle `json:"bundle,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// collectMedia lists the files under root the decoders understand.
func collectMedia(root string) ([]string, int64, error) {
	var files []string
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if media.IsVideoFile(path) || media.IsImageFile(path) || media.IsWAVFile(path) {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
			files = append(files, path)
		}
		return nil
	})
	return files, total, err
}

func handleBatch(args []string) {
	positional, flagArgs := splitArgs(args)
	cmd := flag.NewFlagSet("batch", flag.ExitOnError)
	add := cmd.Bool("add", false, "Add every file to the library")
	out := cmd.String("out", "", "Write one JSON line per file to this path")
	parallel := cmd.Int("parallel", 2, "Files processed at once")
	cmd.Parse(flagArgs)

	if len(positional) != 1 {
		fmt.Println("Usage: mediadna batch <dir> [--add] [--out <file.jsonl>] [--parallel <n>]")
		os.Exit(1)
	}
	log := logger.WithComponent("batch")

	files, size, err := collectMedia(positional[0])
	if err != nil {
		fail("Failed to scan %s: %v", positional[0], err)
	}
	if len(files) == 0 {
		fail("No supported media under %s", positional[0])
	}
	fmt.Printf("📂 %d file(s), %s\n", len(files), humanize.IBytes(uint64(size)))

	// Lines go to <out>.part, renamed to <out> when the batch completes.
	var (
		enc     *json.Encoder
		outFile *os.File
	)
	if *out != "" {
		outFile, err = os.Create(*out + ".part")
		if err != nil {
			fail("Failed to create %s: %v", *out, err)
		}
		enc = json.NewEncoder(outFile)
	}

	svc := mustService()
	defer svc.Close()

	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(len(files)),
		mpb.PrependDecorators(
			decor.Name("Fingerprinting: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	var (
		mu     sync.Mutex
		failed atomic.Int64
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(*parallel, 1))
	for _, path := range files {
		g.Go(func() error {
			line := batchLine{Path: path}
			if *add {
				rec, err := svc.AddMedia(ctx, path, "")
				if err != nil {
					line.Error = err.Error()
				} else {
					line.ID = rec.ID
				}
			} else {
				b, err := svc.Fingerprint(ctx, path)
				if err != nil {
					line.Error = err.Error()
				} else {
					line.Bundle = b
				}
			}
			if line.Error != "" {
				failed.Add(1)
				log.Warnf("%s: %s", path, line.Error)
			}

			if enc != nil {
				mu.Lock()
				err := enc.Encode(line)
				mu.Unlock()
				if err != nil {
					return fmt.Errorf("writing output: %w", err)
				}
			}
			bar.Increment()
			return nil
		})
	}
	err = g.Wait()
	if err != nil {
		bar.Abort(false)
	}
	p.Wait()
	if outFile != nil {
		if cerr := outFile.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(outFile.Name())
		} else if err = utils.MoveFile(outFile.Name(), *out); err != nil {
			os.Remove(outFile.Name())
		}
	}
	if err != nil {
		fail("Batch aborted: %v", err)
	}

	fmt.Printf("\n✅ Processed %d file(s), %d failed\n", len(files), failed.Load())
}
