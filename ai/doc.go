// Package ai defines the AI collaborators used during a discovery run.
//
// Two services are involved:
//
//   - Embedder: vector embeddings for the reranker's base relevance score
//   - RelevanceClassifier: batch relevance judgements for the prioritizer
//
// AIProvider bundles both for convenient initialization.
//
// Implementations:
//
//   - ai/openai: OpenAI-compatible APIs (OpenAI, Ollama, vLLM) through langchaingo
//   - ai/mock: deterministic test doubles with injectable behavior
//
// Every AI call is optional to the pipeline. Errors, timeouts and malformed
// output are absorbed by the caller, which falls back to lexical scoring.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithHost("http://localhost:11434")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	judgements, err := provider.RelevanceClassifier().ClassifyRelevance(ctx, "kartellrecht", items)
package ai
