// Package openai implements the ai collaborators on OpenAI-compatible APIs
// (OpenAI, Ollama, LocalAI, vLLM) through langchaingo.
//
// The relevance classifier asks for JSON mode output and repairs common
// defects before decoding: markdown fences, prose around the object, trailing
// commas and keys missing their opening quote. Anything still unusable is
// reported as core.ErrProviderMalformedResponse.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithHost("http://localhost:11434")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
package openai
