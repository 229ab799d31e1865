// Package mediagraph ingests movie, series and episode metadata into a
// labeled property graph.
//
// Every write is create-if-absent: ingesting the same title twice leaves the
// graph unchanged the second time, category nodes (people, genres, countries
// and so on) are created once on first reference and shared afterwards, and
// an episode is always attached to a fully materialized series.
//
// # Basic Usage
//
//	d, err := driver.NewDriver(driver.Config{
//		Provider: driver.GraphProviderNeo4j,
//		URI:      "bolt://localhost:7687",
//		Username: "neo4j",
//		Password: "password",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer d.Close(ctx)
//
//	source := omdb.NewClient(omdb.Config{APIKey: key}, nil, nil, logger)
//	client, err := mediagraph.NewClient(d, source, nil, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	result, err := client.Ingest(ctx, "tt0111161")
//
// # Outcomes
//
// Each ingestion ends as created, skipped_duplicate, unsupported_kind or
// failed. Only failed returns an error. Link failures never abort a title;
// they are listed in IngestResult.LinkErrors.
//
// # Concurrency
//
// A Client owns one session and serializes calls on it. IngestMany opens one
// session per worker. All orchestrators of a Client share a key locker, so a
// name is created at most once within the process; enable
// Config.UniqueConstraints for the same guarantee across processes.
package mediagraph
