// Command ingest loads one document into the configured vector index.
//
//	ingest -source ./cv.pdf
//	ingest -source s3://resumes/ana.docx -id ana
//	ingest -text "Ana García. Backend developer." -id ana
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cv-rag/internal/bootstrap"
	"cv-rag/internal/config"
	"cv-rag/internal/dto"
	"cv-rag/pkg/apperror"

	"github.com/fatih/color"
)

func main() {
	source := flag.String("source", "", "path or s3://bucket/key of the document to ingest")
	text := flag.String("text", "", "inline document text, used when -source is empty")
	id := flag.String("id", "", "document id; derived from the file name when empty")
	flag.Parse()

	if *source == "" && *text == "" {
		color.Red("either -source or -text is required")
		flag.Usage()
		os.Exit(2)
	}

	os.Exit(run(*source, *text, *id))
}

func run(source, text, id string) int {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		color.Red("Configuration error: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		color.Red("Startup failed: %s", apperror.UserMessage(err))
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer container.Close()

	color.Cyan("Ingesting into namespace %q (%s, %s chunking)", cfg.VectorStore.Namespace, cfg.VectorStore.Backend, cfg.Rag.ChunkStrategy)

	res, err := container.IngestionService.Ingest(ctx, &dto.IngestDocumentRequest{
		DocumentId: id,
		Text:       text,
		Source:     source,
	})
	if err != nil {
		color.Red("Ingestion failed [%s]: %s", apperror.KindOf(err), apperror.UserMessage(err))
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	color.Green("✅ Indexed %q: %d chunks, %d stale removed in %dms", res.DocumentId, res.Chunks, res.Pruned, res.DurationMs)
	fmt.Printf("run id: %s\n", res.RunId)
	return 0
}
