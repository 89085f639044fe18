// Package mock provides test doubles for the ai interfaces.
//
// Defaults are deterministic: MockEmbedder returns hashed bag-of-words vectors
// (texts sharing words are similar) and MockRelevanceClassifier scores items by
// the share of query words found in their URL and title. Function fields
// override either behavior, and CallCount supports assertions.
//
//	classifier := mock.NewMockRelevanceClassifier()
//	classifier.ClassifyFunc = func(ctx context.Context, q string, items []ai.RelevanceItem) ([]ai.Judgement, error) {
//	    <-ctx.Done()
//	    return nil, ctx.Err()
//	}
//	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), classifier)
package mock
