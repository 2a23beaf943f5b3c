//go:build !js && !wasm

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/MediaDNA/pkg/logger"
)

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("Failed to encode output: %v", err)
	}
	fmt.Println(string(out))
}

func handleFingerprint(args []string) {
	positional, flagArgs := splitArgs(args)
	cmd := flag.NewFlagSet("fingerprint", flag.ExitOnError)
	robust := cmd.Bool("robust", false, "Print only the robust hashes")
	cmd.Parse(flagArgs)

	if len(positional) != 1 {
		fmt.Println("Usage: mediadna fingerprint <file|url> [--robust]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	b, err := svc.Fingerprint(ctx, positional[0])
	if err != nil {
		logger.Errorf("Fingerprint failed: %v", err)
		fail("Failed to fingerprint: %v", err)
	}

	if *robust {
		out := map[string]any{"robust_video_hash": b.RobustVideoHash, "robust_audio_hash": nil}
		if b.HasAudio() {
			out["robust_audio_hash"] = b.Audio.RobustHash
		}
		printJSON(out)
		return
	}
	printJSON(b)
}

func handleImage(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: mediadna image <image_file>")
		os.Exit(1)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fail("Failed to read %s: %v", args[0], err)
	}

	svc := mustService()
	defer svc.Close()

	h, err := svc.HashImage(args[0], data)
	if err != nil {
		fail("Failed to hash image: %v", err)
	}
	fmt.Printf("🖼  %s (%dx%d, %s)\n", args[0], h.Width, h.Height, humanize.IBytes(uint64(len(data))))
	fmt.Printf("   DCT hash:     %s\n", h.Hash)
	fmt.Printf("   Hex:          %s\n", h.Hex)
	fmt.Printf("   Average hash: %s\n", h.AverageHash)
}

func handleCompare(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: mediadna compare <file|url> <file|url>")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	fmt.Println("🔍 Fingerprinting both inputs...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	c, err := svc.Compare(ctx, args[0], args[1])
	if err != nil {
		logger.Errorf("Compare failed: %v", err)
		fail("Failed to compare: %v", err)
	}

	fmt.Println()
	if c.VideoSimilarity != nil {
		fmt.Printf("   Video similarity:   %.4f\n", *c.VideoSimilarity)
	} else {
		fmt.Println("   Video similarity:   n/a (no frames on either side)")
	}
	if c.AudioSimilarity != nil {
		fmt.Printf("   Audio similarity:   %.4f\n", *c.AudioSimilarity)
	} else {
		fmt.Println("   Audio similarity:   n/a (no audio on either side)")
	}
	fmt.Printf("   Overall similarity: %.4f\n", c.OverallSimilarity)
	if c.IsSameContent {
		fmt.Println("\n✅ Same content")
	} else {
		fmt.Println("\n❌ Different content")
	}
}

func handleCompareHashes(args []string) {
	positional, flagArgs := splitArgs(args)
	cmd := flag.NewFlagSet("compare-hashes", flag.ExitOnError)
	threshold := cmd.String("threshold", "", "Similarity threshold in [0, 1] (default: image threshold)")
	cmd.Parse(flagArgs)

	if len(positional) != 2 {
		fmt.Println("Usage: mediadna compare-hashes <hash1> <hash2> [--threshold <t>]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	r, err := svc.CompareHashes(positional[0], positional[1], parseThreshold(*threshold))
	if err != nil {
		fail("Failed to compare hashes: %v", err)
	}
	printJSON(r)
}

func handleAdd(args []string) {
	positional, flagArgs := splitArgs(args)
	cmd := flag.NewFlagSet("add", flag.ExitOnError)
	title := cmd.String("title", "", "Title (default: file name)")
	cmd.Parse(flagArgs)

	if len(positional) != 1 {
		fmt.Println("Usage: mediadna add <file|url> [--title <title>]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	fmt.Println("🎞  Processing media...")
	fmt.Println("   This may take a few moments for long videos")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	rec, err := svc.AddMedia(ctx, positional[0], *title)
	if err != nil {
		logger.Errorf("AddMedia failed: %v", err)
		fail("Failed to add media: %v", err)
	}

	fmt.Println("\n✅ Successfully added media to the library!")
	fmt.Printf("   ID:       %s\n", rec.ID)
	fmt.Printf("   Title:    %s\n", rec.Title)
	fmt.Printf("   Kind:     %s\n", rec.Kind)
	fmt.Printf("   Frames:   %d\n", rec.FrameCount)
	fmt.Printf("   Segments: %d\n", rec.SegmentCount)
}

func handleMatch(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: mediadna match <file|url>")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	fmt.Println("🔍 Analyzing media...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	results, err := svc.Match(ctx, args[0])
	if err != nil {
		logger.Errorf("Match failed: %v", err)
		fail("Failed to match: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("\n📭 Library is empty or holds no comparable entries")
		return
	}

	fmt.Printf("\n✅ Ranked %d entr(ies):\n\n", len(results))
	for i, r := range results {
		marker := ""
		switch {
		case r.ExactMatch:
			marker = " [exact]"
		case r.IsSameContent:
			marker = " [same content]"
		}
		fmt.Printf("%d. \"%s\" (ID: %s)%s\n", i+1, r.Title, r.MediaID, marker)
		fmt.Printf("   Overall: %.4f", r.OverallSimilarity)
		if r.VideoSimilarity != nil {
			fmt.Printf(" | Video: %.4f", *r.VideoSimilarity)
		}
		if r.AudioSimilarity != nil {
			fmt.Printf(" | Audio: %.4f", *r.AudioSimilarity)
		}
		fmt.Println()
		fmt.Println()
	}
}

func handleList() {
	svc := mustService()
	defer svc.Close()

	list, err := svc.ListMedia(context.Background())
	if err != nil {
		fail("Failed to list media: %v", err)
	}
	if len(list) == 0 {
		fmt.Println("\n📭 No media in the library")
		return
	}

	fmt.Printf("\n📚 Found %d entr(ies):\n\n", len(list))
	for i, rec := range list {
		fmt.Printf("%d. \"%s\" (ID: %s)\n", i+1, rec.Title, rec.ID)
		fmt.Printf("   Kind: %s | Frames: %d | Segments: %d | Added %s\n",
			rec.Kind, rec.FrameCount, rec.SegmentCount, humanize.Time(rec.CreatedAt))
		if rec.DurationMs > 0 {
			duration := rec.DurationMs / 1000
			fmt.Printf("   Duration: %d:%02d\n", duration/60, duration%60)
		}
		fmt.Printf("   Source: %s\n\n", rec.Source)
	}
}

func handleDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: mediadna delete <media_id>")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx := context.Background()
	rec, err := svc.GetMedia(ctx, args[0])
	if err != nil {
		fail("Media not found (ID: %s): %v", args[0], err)
	}
	if err := svc.DeleteMedia(ctx, args[0]); err != nil {
		fail("Failed to delete media: %v", err)
	}

	fmt.Printf("\n✅ Successfully deleted media:\n")
	fmt.Printf("   ID:    %s\n", rec.ID)
	fmt.Printf("   Title: %s\n", rec.Title)
}
