//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"

	"cv-rag/internal/bootstrap"
	"cv-rag/internal/config"
	"cv-rag/pkg/embedding"

	"github.com/fatih/color"
)

// Vectors from the embedder are unit length, so the dot product is the
// cosine similarity.
func similarity(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func main() {
	cfg := config.MustLoad()

	// 1. Initialize the configured provider
	provider, err := bootstrap.NewEmbeddingProvider(cfg)
	if err != nil {
		log.Fatalf("provider: %v", err)
	}
	embedder, err := embedding.NewEmbedder(provider, embedding.DefaultOptions(cfg.Ai.EmbeddingDimension))
	if err != nil {
		log.Fatalf("embedder: %v", err)
	}

	// 2. Define Test Cases
	question := "¿Dónde estudió el candidato?"
	related := "Maestría en Inteligencia Artificial, Universidad de Buenos Aires, 2019."
	unrelated := "Disponibilidad para viajar y carnet de conducir clase B."

	ctx := context.Background()
	q, err := embedder.EmbedQuery(ctx, question)
	if err != nil {
		log.Fatalf("embed question: %v", err)
	}
	docs, err := embedder.EmbedBatch(ctx, []string{related, unrelated})
	if err != nil {
		log.Fatalf("embed documents: %v", err)
	}

	// 3. Compare Similarity
	color.Cyan("--- %s (%d dims) ---", cfg.Ai.EmbeddingProvider, embedder.Dimension())
	fmt.Printf("question vs related:   %.4f\n", similarity(q, docs[0]))
	fmt.Printf("question vs unrelated: %.4f\n", similarity(q, docs[1]))
	if similarity(q, docs[0]) > similarity(q, docs[1]) {
		color.Green("✅ related chunk ranks first")
	} else {
		color.Red("❌ unrelated chunk ranks first; check the model and task hints")
	}
}
