// Package statuta embeds the legal document retrieval pipeline as a Go
// library: scraping peraturan.bpk.go.id, LLM query enhancement,
// embedding-based reranking and answer synthesis, without running the
// HTTP service.
//
// # Minimal — scrape and lexical ranking only
//
//	client, _ := statuta.New(ctx, statuta.WithDefaults())
//	defer client.Close()
//	resp, _ := client.SearchSimple(ctx, "hukum lingkungan hidup")
//
// # Full pipeline — LLM enhancement, semantic reranking, cached
//
//	client, _ := statuta.New(ctx,
//	    statuta.WithDefaults(),
//	    statuta.WithLLM(os.Getenv("DASHSCOPE_API_KEY"), "", ""),
//	    statuta.WithEmbedding("text-embedding-v3", 1024),
//	    statuta.WithValkey("localhost:6379", ""),
//	)
//	resp, _ := client.Search(ctx, statuta.SearchRequest{
//	    Query:      "sanksi pencemaran sungai",
//	    MaxResults: 5,
//	    Verbosity:  "concise",
//	})
//
// Without WithLLM the pipeline degrades to rule-based query expansion
// and skips answer synthesis; without WithEmbedding ranking is lexical.
// Degradations never fail a search.
package statuta
