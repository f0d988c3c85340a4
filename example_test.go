package promptvault_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aretw0/promptvault"
	"github.com/aretw0/promptvault/pkg/reconcile"
)

func clock() time.Time {
	return time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
}

// Example_basic adds a prompt with a note and reads them back.
func Example_basic() {
	ctx := context.Background()
	svc, err := promptvault.New(ctx, "", promptvault.WithAdapter("memory"), promptvault.WithClock(clock))
	if err != nil {
		log.Fatal(err)
	}

	p, err := svc.AddPrompt(ctx, "Summarize", "Summarize the following text in three bullet points.", "gpt-4")
	if err != nil {
		log.Fatal(err)
	}
	if _, err := svc.AddNote(ctx, p.ID, "Works best with short inputs"); err != nil {
		log.Fatal(err)
	}

	notes, _ := svc.Notes(ctx, p.ID)
	fmt.Println(p.Title, p.Model())
	fmt.Println(p.Metadata.TokenEstimate.Min, p.Metadata.TokenEstimate.Max, p.Metadata.TokenEstimate.Confidence)
	fmt.Println(len(notes), notes[0].Text)

	// Output:
	// Summarize gpt-4
	// 6 13 high
	// 1 Works best with short inputs
}

// Example_merge exports one library and merges it into another that already
// holds one of the prompts.
func Example_merge() {
	ctx := context.Background()
	src, _ := promptvault.New(ctx, "", promptvault.WithAdapter("memory"), promptvault.WithClock(clock))
	shared, _ := src.AddPrompt(ctx, "Shared", "A prompt both libraries know.", "claude")
	if _, err := src.AddPrompt(ctx, "Fresh", "Only the source has this one.", "claude"); err != nil {
		log.Fatal(err)
	}

	data, err := promptvault.Export(src)
	if err != nil {
		log.Fatal(err)
	}

	dst, _ := promptvault.New(ctx, "", promptvault.WithAdapter("memory"), promptvault.WithClock(clock))
	if _, err := promptvault.Restore(ctx, dst, data); err != nil {
		log.Fatal(err)
	}
	if err := dst.DeletePrompt(ctx, shared.ID); err != nil {
		log.Fatal(err)
	}

	res, err := promptvault.Import(ctx, dst, data, reconcile.KeepAll)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("added=%d overwritten=%d kept=%d\n", res.Added, res.Overwritten, res.Kept)

	// Output:
	// added=1 overwritten=0 kept=1
}
