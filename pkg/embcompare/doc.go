// Package embcompare runs one query against several embedding providers and
// compares the nearest-neighbor results each provider's vectors produce.
//
// Every provider owns a namespace in a shared vector database that was filled
// with that provider's document embeddings. A comparison embeds the query once
// per provider, searches the matching namespace and aggregates the results.
//
//	client, _ := embcompare.New(ctx,
//	    embcompare.WithValkey("localhost:6379", ""),
//	    embcompare.WithProvider(embcompare.Provider{
//	        Name:       "small",
//	        Model:      "text-embedding-3-small",
//	        Dimensions: 1536,
//	        Namespaces: map[string]string{"titles": "titles_small"},
//	    }, smallEmbedder),
//	)
//	defer client.Close()
//
//	report, _ := client.Compare(ctx, embcompare.Request{Query: "data engineer", Domain: "titles"})
//	fmt.Println(report.Summary.BestQuality)
package embcompare
