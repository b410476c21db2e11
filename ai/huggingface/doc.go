// Package huggingface implements ai.Embedder against the HuggingFace
// feature-extraction inference API.
//
// Each text is posted as {"inputs": text} to
// {EmbeddingHost}/models/{EmbeddingModel}/pipeline/feature-extraction. The service
// answers with either a flat vector or a one-element list of vectors; both are
// accepted. A 503 answer means the model is still loading.
//
//	provider, err := huggingface.NewProvider(ai.NewConfig(ai.WithAPIKey(os.Getenv("HF_TOKEN"))))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "the dumplings were perfect")
package huggingface
