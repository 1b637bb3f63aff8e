// Command ask answers questions about the ingested résumé, either once
// (-q) or interactively until EOF or "exit".
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"cv-rag/internal/bootstrap"
	"cv-rag/internal/config"
	"cv-rag/internal/dto"
	"cv-rag/pkg/apperror"

	"github.com/fatih/color"
)

func main() {
	question := flag.String("q", "", "ask a single question and exit")
	docID := flag.String("doc", "", "restrict retrieval to one document id")
	showSources := flag.Bool("sources", true, "print the chunks the answer was built from")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		color.Red("Configuration error: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	container, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		color.Red("Startup failed: %s", apperror.UserMessage(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer container.Close()

	a := &asker{container: container, docID: *docID, showSources: *showSources}

	if *question != "" {
		if !a.ask(ctx, *question) {
			container.Close()
			os.Exit(1)
		}
		return
	}

	color.Cyan("🤖 Ask about the résumé (type 'exit' to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		color.New(color.FgYellow).Print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		a.ask(ctx, line)
	}
}

type asker struct {
	container   *bootstrap.Container
	docID       string
	showSources bool
}

func (a *asker) ask(ctx context.Context, question string) bool {
	res, err := a.container.AnswerService.Answer(ctx, &dto.AnswerRequest{
		Question:    question,
		SourceDocId: a.docID,
	})
	if err != nil {
		color.Red("[%s] %s", apperror.KindOf(err), apperror.UserMessage(err))
		return false
	}

	fmt.Println(res.Answer)
	if res.NoContext {
		color.Yellow("(no relevant context was found in the index)")
	}
	if a.showSources {
		for _, s := range res.Sources {
			color.HiBlack("  • %s (score %.3f)", s.Id, s.Score)
		}
	}
	return true
}
