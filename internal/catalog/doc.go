// Package catalog inventories a tree of EDF recordings and summarises it.
//
// The pipeline has four stages, each usable on its own:
//   - Discovery walks a root directory and keeps recording files whose path
//     carries both a montage tag and a diagnostic label.
//   - Extraction opens each file header-only and produces a MetadataRecord,
//     reporting per-file failures as values instead of aborting the batch.
//   - Aggregation folds records into CorpusStats and a ChannelFrequencyTable.
//   - Reporting renders stats as sections, tables and a bar chart.
//
// Example usage:
//
//	found, _ := catalog.FindRecordings(root, catalog.DiscoveryOptions{Montage: "_tcp_ar", Epilepsy: true})
//	results := (&catalog.Extractor{Workers: 4}).ExtractAll(ctx, found.Paths)
//	records := catalog.Records(results)
//	stats := catalog.ComputeStats(records, catalog.StatsOptions{Rounding: 2})
//	for _, line := range catalog.FormatSections(stats.Sections(), false) {
//	    fmt.Println(line)
//	}
package catalog
