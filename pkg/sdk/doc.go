// Package lookup embeds the entity lookup engine in a Go program.
//
// The client owns an on-disk index directory. Index jobs load documents
// from a SPARQL endpoint or from parquet files, searches run against the
// latest committed generation.
//
//	client, _ := lookup.New(
//	    lookup.WithIndexPath("./index"),
//	    lookup.WithFields(
//	        lookup.Field{Name: "label", Type: lookup.Text, Weight: 1, Tokenize: true, Highlight: true, QueryByDefault: true},
//	        lookup.Field{Name: "type", Type: lookup.URI, Weight: 1, Exact: true},
//	        lookup.Field{Name: "refCount", Type: lookup.Numeric},
//	    ),
//	    lookup.WithBoostFormula("1 + log(1 + refCount)"),
//	)
//	defer client.Close()
//
//	stats, _ := client.IndexFile(ctx, "jobs/labels.yml")
//	records, _ := client.Search().Query("paris").Limit(10).Do(ctx)
package lookup
