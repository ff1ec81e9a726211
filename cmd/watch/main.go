package main

// Watch in-flight documents until they settle:
//   go run ./cmd/watch -base-url http://localhost:8080 -applicant-id my-guest-id

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"kyc-backend/internal/poller"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "API base URL")
	token := flag.String("token", "", "bearer token (takes precedence over -applicant-id)")
	applicantID := flag.String("applicant-id", "", "guest applicant ID")
	interval := flag.Duration("interval", poller.DefaultInterval, "polling interval")
	flag.Parse()

	if *token == "" && *applicantID == "" {
		log.Printf("either -token or -applicant-id is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := poller.NewClient(*baseURL, *token, *applicantID)
	watcher := &poller.Watcher{
		Client:   client,
		Interval: *interval,
		OnChange: printDocuments,
	}

	docs, err := client.ListDocuments(ctx)
	if err != nil {
		log.Printf("list documents: %v", err)
		os.Exit(1)
	}
	printDocuments(docs)

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("watch: %v", err)
		os.Exit(1)
	}
	fmt.Println("all documents settled")
}

func printDocuments(docs []poller.DocumentSummary) {
	fmt.Printf("-- %s\n", time.Now().Format(time.TimeOnly))
	for _, doc := range docs {
		fmt.Printf("%-16s %-22s %s\n", doc.Category, doc.Status, doc.FileName)
	}
}
